// Package server exposes the dispatcher over HTTP, along with a small
// set of control endpoints under /__fauxd/.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fauxapi/fauxd/pkg/config"
	"github.com/fauxapi/fauxd/pkg/dispatch"
	"github.com/fauxapi/fauxd/pkg/httputil"
	"github.com/fauxapi/fauxd/pkg/logging"
	"github.com/fauxapi/fauxd/pkg/resource"
)

// Control endpoints. Everything else routes to the dispatcher.
const (
	healthPath = "/__fauxd/health"
	resetPath  = "/__fauxd/reset"
	statsPath  = "/__fauxd/stats"
)

// DefaultMaxBodyBytes caps request bodies when the config does not.
const DefaultMaxBodyBytes = 1 << 20

// Server ties the dispatcher, store, and control surface to a listener.
type Server struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	store      *resource.Store
	metrics    *dispatch.MetricsObserver
	logger     *slog.Logger
	httpServer *http.Server
}

// New assembles a server. metrics and logger may be nil.
func New(cfg *config.Config, d *dispatch.Dispatcher, store *resource.Store, metrics *dispatch.MetricsObserver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: d,
		store:      store,
		metrics:    metrics,
		logger:     logger,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the HTTP handler, exported for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, s.handleHealth)
	mux.HandleFunc(resetPath, s.handleReset)
	mux.HandleFunc(statsPath, s.handleStats)
	mux.HandleFunc("/", s.handleMock)
	return s.logRequests(mux)
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains connections and flushes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.store.Close()
}

func (s *Server) handleMock(w http.ResponseWriter, r *http.Request) {
	maxBody := s.cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		httputil.WriteErrorWithDetails(w, http.StatusRequestEntityTooLarge,
			"payload_too_large", "request body exceeds limit",
			map[string]any{"limitBytes": maxBody})
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), &dispatch.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   body,
	})

	if resp.Meta != nil {
		w.Header().Set("X-Fauxd-Operation", resp.Meta.Operation)
		w.Header().Set("X-Fauxd-Source", resp.Meta.Source)
	}
	if resp.StatusCode == http.StatusNoContent {
		httputil.WriteNoContent(w)
		return
	}
	httputil.WriteJSON(w, resp.StatusCode, resp.Body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	httputil.WriteOK(w, map[string]any{
		"status":     "ok",
		"storedKeys": s.store.Len(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	s.store.Reset()
	if s.metrics != nil {
		s.metrics.Reset()
	}
	s.logger.Info("state reset")
	httputil.WriteOK(w, map[string]string{"status": "reset"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	if s.metrics == nil {
		httputil.WriteOK(w, map[string]string{"status": "metrics disabled"})
		return
	}
	httputil.WriteOK(w, s.metrics.Snapshot())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// Seed loads configured seed collections into the store: each item is
// appended to its collection and, when it carries an id, stored under
// the item key as well.
func Seed(store *resource.Store, seeds []config.SeedCollection, logger *slog.Logger) {
	if logger == nil {
		logger = logging.Nop()
	}
	for _, seed := range seeds {
		for _, item := range seed.Items {
			record := normalizeYAML(item)
			store.AppendToCollection(seed.Path, record)
			if id, ok := record["id"]; ok {
				store.Set(seed.Path+"/"+anyString(id), record)
			}
		}
		logger.Info("seeded collection", "path", seed.Path, "items", len(seed.Items))
	}
}
