/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/shannai37/github-star-plugin/pkg/github"
)

const (
	defaultIndexTimeout = 10 * time.Second
	maxIndexSize        = 32 * 1024 * 1024
	unknownAuthor       = "Unknown"
)

// DefaultIndexURLs are the community plugin index and its CDN mirror, in preference order.
var DefaultIndexURLs = []string{
	"https://raw.githubusercontent.com/AstrBotDevs/AstrBot_Plugins_Collection/main/plugins.json",
	"https://cdn.jsdelivr.net/gh/AstrBotDevs/AstrBot_Plugins_Collection@main/plugins.json",
}

// Source produces the full list of catalog entries.
type Source interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

// IndexSource fetches the plugin index over HTTP, trying each URL in order.
type IndexSource struct {
	urls       []string
	httpClient *http.Client
	logger     *slog.Logger
}

// IndexOption configures an IndexSource.
type IndexOption func(*IndexSource)

// WithIndexHTTPClient replaces the HTTP client.
func WithIndexHTTPClient(c *http.Client) IndexOption {
	return func(s *IndexSource) {
		s.httpClient = c
	}
}

// WithIndexLogger sets the logger.
func WithIndexLogger(l *slog.Logger) IndexOption {
	return func(s *IndexSource) {
		s.logger = l
	}
}

// NewIndexSource creates an IndexSource. An empty list uses DefaultIndexURLs.
func NewIndexSource(urls []string, opts ...IndexOption) *IndexSource {
	if len(urls) == 0 {
		urls = DefaultIndexURLs
	}

	s := &IndexSource{
		urls:       urls,
		httpClient: &http.Client{Timeout: defaultIndexTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Fetch returns the entries of the first index URL that yields at least one plugin.
func (s *IndexSource) Fetch(ctx context.Context) ([]Entry, error) {
	var combined error

	for _, url := range s.urls {
		entries, err := s.fetchOne(ctx, url)
		if err == nil && len(entries) > 0 {
			s.logger.Info("loaded plugin index", "url", url, "plugins", len(entries))

			return entries, nil
		}

		if err == nil {
			err = errors.Newf("index %s contains no plugins", url)
		}

		s.logger.Warn("failed to load plugin index", "url", url, "error", err)
		combined = errors.CombineErrors(combined, err)
	}

	return nil, errors.Wrap(combined, "all plugin index sources failed")
}

func (s *IndexSource) fetchOne(ctx context.Context, url string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIndexSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read index body")
	}

	// The index is served as text/plain from raw.githubusercontent.com, so the content type is ignored.
	return ParseIndex(body)
}

// indexItem mirrors one plugin record. Several field names have aliases in the wild.
type indexItem struct {
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Desc        string   `json:"desc"`
	Description string   `json:"description"`
	Repo        string   `json:"repo"`
	Repository  string   `json:"repository"`
	Stars       int      `json:"stars"`
	Version     string   `json:"version"`
	Tags        []string `json:"tags"`
	Topics      []string `json:"topics"`
	UpdatedAt   string   `json:"updated_at"`
}

// ParseIndex parses an index document. Both the object form keyed by plugin
// name and the list form are accepted. Object order is preserved. Records
// that fail to parse, or that lack a name or repository, are skipped.
func ParseIndex(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty plugin index")
	}

	switch trimmed[0] {
	case '{':
		return parseObject(trimmed)
	case '[':
		return parseList(trimmed)
	default:
		return nil, errors.New("plugin index is neither a JSON object nor a JSON array")
	}
}

func parseList(data []byte) ([]Entry, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.Wrap(err, "failed to parse plugin index")
	}

	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		if e, ok := parseItem(raw, ""); ok {
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// parseObject walks the top-level object with a token decoder since a map would lose key order.
func parseObject(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "failed to parse plugin index")
	}

	var entries []Entry

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse plugin index")
		}

		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrapf(err, "failed to parse plugin index at %q", key)
		}

		if e, ok := parseItem(raw, key); ok {
			entries = append(entries, e)
		}
	}

	return entries, nil
}

func parseItem(raw json.RawMessage, key string) (Entry, bool) {
	var item indexItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return Entry{}, false
	}

	name := strings.TrimSpace(item.Name)
	if key != "" {
		name = strings.TrimSpace(key)
	}

	if name == "" {
		return Entry{}, false
	}

	author := strings.TrimSpace(item.Author)
	repoURL := strings.TrimSpace(firstNonEmpty(item.Repo, item.Repository))

	if repoURL == "" && author != "" {
		repoURL = "https://github.com/" + author + "/" + name
	}

	if repoURL == "" {
		return Entry{}, false
	}

	if author == "" {
		author = unknownAuthor
	}

	tags := item.Tags
	if len(tags) == 0 {
		tags = item.Topics
	}

	e := Entry{
		FullName:    github.FullNameFromURL(repoURL),
		Name:        name,
		ShortName:   ShortName(name),
		Author:      author,
		Description: strings.TrimSpace(firstNonEmpty(item.Desc, item.Description)),
		Stars:       item.Stars,
		RepoURL:     repoURL,
		Version:     strings.TrimSpace(item.Version),
		Tags:        tags,
	}

	if item.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, item.UpdatedAt); err == nil {
			e.UpdatedAt = t
		}
	}

	return e, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
