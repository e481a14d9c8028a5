package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/shannai37/github-star-plugin/internal/manager"
	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/resolver"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.manager.Initialized() {
		writeError(w, http.StatusServiceUnavailable, "not initialized")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, err := s.manager.Find(r.Context(), userID(r), r.URL.Query().Get("q"), pageParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchPage(page))
}

func (s *Server) handleAuthor(w http.ResponseWriter, r *http.Request) {
	page, err := s.manager.FindByAuthor(r.Context(), userID(r), chi.URLParam(r, "author"), pageParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchPage(page))
}

func (s *Server) handleStar(w http.ResponseWriter, r *http.Request) {
	out, err := s.manager.StarPlugin(r.Context(), userID(r), chi.URLParam(r, "identifier"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	status := http.StatusCreated
	if out.AlreadyStarred {
		status = http.StatusOK
	}

	view := toStarOutcome(out)
	s.events.Publish("star", starEvent{User: userID(r), starOutcomeView: view})
	writeJSON(w, status, view)
}

func (s *Server) handleInstalled(w http.ResponseWriter, r *http.Request) {
	page, err := s.manager.ListInstalled(r.Context(), userID(r), pageParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toInstalledPage(page))
}

func (s *Server) handleStarAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.manager.StarAllInstalled(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	view := toBatchReport(report)
	s.events.Publish("starall", batchEvent{User: userID(r), batchView: view})
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.manager.MyGitHub(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	report, err := s.manager.TestNetwork(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toNetworkReport(report))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.manager.UpdatePlugins(r.Context(), userID(r))

	if err != nil && n == 0 {
		s.fail(w, r, err)
		return
	}

	view := refreshView{Plugins: n}
	if err != nil {
		view.Stale = true
		view.Error = err.Error()
	}

	s.events.Publish("catalog", view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	info, err := s.manager.Debug(userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDebugView(info))
}

// fail maps an error to a status code and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "user", userID(r), "error", err)
	}

	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, resolver.ErrAmbiguous):
		return http.StatusConflict
	case errors.Is(err, resolver.ErrNotFound), errors.Is(err, github.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, github.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, manager.ErrNoInstalledSource):
		return http.StatusNotImplemented
	case errors.Is(err, github.ErrAuth), errors.Is(err, github.ErrPermission), errors.Is(err, github.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func userID(r *http.Request) string {
	return r.Header.Get(UserHeader)
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}

	return page
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
