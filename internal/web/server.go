package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calgrid/internal/config"
	appLog "calgrid/internal/log"
	"calgrid/internal/metric"
	"calgrid/internal/model"
	"calgrid/internal/store"
)

// Server is the HTTP surface of the calendar: a JSON API over the
// repository and layout engine, plus the embedded browser UI.
type Server struct {
	cfg       *config.Config
	repo      store.Repository
	mux       *http.ServeMux
	loc       *time.Location
	weekStart time.Weekday
	dates     *when.Parser
	now       func() time.Time

	// Events and categories read from the repository, reused until a
	// mutation or an external change invalidates them. cacheGen counts
	// invalidations; a snapshot read under an older generation is not kept.
	cacheMu  sync.RWMutex
	cache    *snapshot
	cacheGen uint64
}

type snapshot struct {
	events     []model.Event
	categories []model.Category
}

//go:embed all:static
var embeddedStatic embed.FS

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs a Server over repo.
func NewServer(cfg *config.Config, repo store.Repository, opts ...Option) *Server {
	dates := when.New(nil)
	dates.Add(en.All...)
	dates.Add(common.All...)

	s := &Server{
		cfg:       cfg,
		repo:      repo,
		mux:       http.NewServeMux(),
		loc:       cfg.Location(),
		weekStart: cfg.FirstWeekday(),
		dates:     dates,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured with
// both a user name and a password.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves on cfg.Listen until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)
	s.mux.HandleFunc("PUT /api/categories/{id}", s.handlePutCategory)

	s.mux.HandleFunc("GET /api/filter", s.handleGetFilter)
	s.mux.HandleFunc("PUT /api/filter", s.handleSetFilter)
	s.mux.HandleFunc("POST /api/filter/toggle/{id}", s.handleToggleFilter)
	s.mux.HandleFunc("POST /api/filter/all", s.handleSelectAll)
	s.mux.HandleFunc("POST /api/filter/none", s.handleSelectNone)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("GET /api/events/{id}/overlapping", s.handleOverlapping)

	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/now", s.handleNow)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleExport)

	s.mux.Handle("GET /metrics", promhttp.Handler())

	static := s.staticFileServer()
	s.mux.Handle("GET /calendar", static)
	s.mux.Handle("/", static)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded UI. /calendar is the same page; the
// view is picked from the query string.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// unknown API paths get a 404, never the HTML page
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if path == "/calendar" {
			http.ServeFileFS(w, r, sub, "index.html")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// data returns events and categories, from the cache when it is warm.
func (s *Server) data(ctx context.Context) (snapshot, error) {
	s.cacheMu.RLock()
	c, gen := s.cache, s.cacheGen
	s.cacheMu.RUnlock()
	if c != nil {
		return *c, nil
	}

	events, err := s.repo.Events(ctx)
	if err != nil {
		return snapshot{}, err
	}
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return snapshot{}, err
	}
	// layout works on wall clock, so read every event in the server zone
	for i := range events {
		events[i].Start = events[i].Start.In(s.loc)
		events[i].End = events[i].End.In(s.loc)
	}
	snap := snapshot{events: events, categories: categories}
	metric.StoredEvents.Set(float64(len(events)))

	s.cacheMu.Lock()
	if s.cacheGen == gen {
		s.cache = &snap
	}
	s.cacheMu.Unlock()
	return snap, nil
}

// Invalidate drops cached repository data. Call it when the store changes
// behind the server's back.
func (s *Server) Invalidate() {
	s.cacheMu.Lock()
	s.cache = nil
	s.cacheGen++
	s.cacheMu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeStoreError maps repository errors to status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("store operation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
