// Package http serves health, readiness, metrics and the live classification
// summary while a batch runs.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// ResultsProvider exposes the classifications produced so far.
type ResultsProvider interface {
	Counts() map[string]int
	Results() []domain.Classification
}

// Server exposes health, readiness, metrics and summary HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and,
// when results is non-nil, /summary and /classifications routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, results ResultsProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if results != nil {
		mux.HandleFunc("GET /summary", handleSummary(results))
		mux.HandleFunc("GET /classifications", handleClassifications(results))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleSummary(p ResultsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		counts := p.Counts()
		total := 0
		for _, n := range counts {
			total += n
		}
		sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
			"total":  total,
			"counts": counts,
		})
	}
}

// handleClassifications lists results, optionally filtered by ?action= and
// ?method= (case-insensitive).
func handleClassifications(p ResultsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")
		method := r.URL.Query().Get("method")

		out := make([]domain.Classification, 0)
		for _, c := range p.Results() {
			if action != "" && !strings.EqualFold(c.Action, action) {
				continue
			}
			if method != "" && !strings.EqualFold(c.Method, method) {
				continue
			}
			out = append(out, c)
		}
		sharedobs.WriteJSON(w, http.StatusOK, out)
	}
}
