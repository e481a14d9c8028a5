package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	eventKeepAlive   = 30 * time.Second
	eventClientQueue = 10
)

type eventClient struct {
	id       string
	messages chan []byte
}

// eventBroker fans server-sent events out to connected clients.
type eventBroker struct {
	clients    map[string]*eventClient
	register   chan *eventClient
	unregister chan *eventClient
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
	nextID     atomic.Uint64
	logger     *slog.Logger
}

func newEventBroker(logger *slog.Logger) *eventBroker {
	return &eventBroker{
		clients:    make(map[string]*eventClient),
		register:   make(chan *eventClient),
		unregister: make(chan *eventClient),
		broadcast:  make(chan []byte, 100),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Start runs the broker loop until ctx is done.
func (b *eventBroker) Start(ctx context.Context) {
	defer close(b.done)

	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for _, client := range b.clients {
				close(client.messages)
			}
			b.clients = make(map[string]*eventClient)
			b.mu.Unlock()

			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client.id] = client
			total := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug("event client connected", "id", client.id, "total", total)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client.id]; ok {
				close(client.messages)
				delete(b.clients, client.id)
			}
			total := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug("event client disconnected", "id", client.id, "total", total)

		case message := <-b.broadcast:
			b.mu.RLock()
			for _, client := range b.clients {
				select {
				case client.messages <- message:
				default:
					b.logger.Debug("event client queue full, dropping event", "id", client.id)
				}
			}
			b.mu.RUnlock()
		}
	}
}

// ServeHTTP streams events to one client.
func (b *eventBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &eventClient{
		id:       "client-" + strconv.FormatUint(b.nextID.Add(1), 10),
		messages: make(chan []byte, eventClientQueue),
	}

	select {
	case b.register <- client:
	case <-b.done:
		writeError(w, http.StatusServiceUnavailable, "event stream is shut down")
		return
	case <-r.Context().Done():
		return
	}

	defer func() {
		select {
		case b.unregister <- client:
		case <-b.done:
		}
	}()

	if _, err := fmt.Fprint(w, "data: connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case message, ok := <-client.messages:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-time.After(eventKeepAlive):
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Publish sends a named event with a JSON payload. It never blocks; events
// are dropped when the queue is full.
func (b *eventBroker) Publish(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn("failed to encode event", "event", event, "error", err)
		return
	}

	select {
	case b.broadcast <- []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)):
	default:
	}
}

// ClientCount returns the number of connected clients.
func (b *eventBroker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.clients)
}
