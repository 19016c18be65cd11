// Package server implements the HTTP API in front of the knowledge base
// query service: search, the methodology and case-study shortcuts, stats,
// liveness and readiness probes, and Prometheus metrics.
// The server is started by the `kbrag serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/kbrag-go/internal/knowledge"
	"github.com/54b3r/kbrag-go/internal/logging"
	"github.com/54b3r/kbrag-go/internal/query"
)

// maxBodyBytes caps the size of a POST /api/query body.
const maxBodyBytes = 64 << 10

// New constructs a Server answering from k.
func New(k searcher, cfg *Config) (*Server, error) {
	if k == nil {
		return nil, fmt.Errorf("server: knowledge service must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		searcher: k,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: API key not set, authentication disabled")
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	rl.onReject = s.metrics.rateLimitedTotal.Inc
	s.stopRL = stop

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(rl),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// routes builds the mux. Health, readiness and metrics are never behind
// auth so orchestrators can probe them.
func (s *Server) routes(rl *rateLimiter) http.Handler {
	protect := func(h http.Handler) http.Handler { return authMiddleware(s.cfg.APIKey, h) }

	mux := http.NewServeMux()
	mux.Handle("POST /api/query", s.instrument("query", protect(rl.middleware(http.HandlerFunc(s.handleQuery)))))
	mux.Handle("GET /api/methodology/{task}", s.instrument("methodology", protect(http.HandlerFunc(s.handleMethodology))))
	mux.Handle("GET /api/examples", s.instrument("examples", protect(http.HandlerFunc(s.handleExamples))))
	mux.Handle("GET /api/examples/{client}", s.instrument("example", protect(http.HandlerFunc(s.handleExample))))
	mux.Handle("GET /api/stats", s.instrument("stats", protect(http.HandlerFunc(s.handleStats))))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	return requestLogger(s.log, mux)
}

// Handler returns the root handler. Used by tests and by callers embedding
// the API in another server.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleQuery handles POST /api/query. A store failure is a 502 with the
// same message the MCP tool would render.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var body queryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	req := query.NewRequest(body.Query)
	if body.NResults > 0 {
		req.N = body.NResults
	}
	req.ContentType = body.ContentType
	req.FilterType = body.FilterType
	req.Topic = body.Topic
	if body.BoostAgency != nil {
		req.BoostAgency = *body.BoostAgency
	}

	results, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		log.Error("query failed", slog.Any("error", err))
		writeJSON(w, log, http.StatusBadGateway, errorResponse{Error: query.FormatError(err)})
		return
	}

	resp := queryResponse{Result: query.Format(results), Results: make([]queryResult, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, queryResult{
			ID:          res.ID,
			Source:      res.Metadata.String(knowledge.KeySource),
			ContentType: res.Metadata.String(knowledge.KeyContentType),
			Topic:       res.Metadata.String(knowledge.KeyTopic),
			Score:       res.Score,
			Distance:    res.Distance,
			Document:    res.Document,
		})
	}
	writeJSON(w, log, http.StatusOK, resp)
}

// handleMethodology handles GET /api/methodology/{task}.
func (s *Server) handleMethodology(w http.ResponseWriter, r *http.Request) {
	text := s.searcher.Methodology(r.Context(), r.PathValue("task"))
	writeJSON(w, logging.FromContext(r.Context()), http.StatusOK, textResponse{Result: text})
}

// handleExamples handles GET /api/examples.
func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, logging.FromContext(r.Context()), http.StatusOK, struct {
		Examples []query.Example `json:"examples"`
		Result   string          `json:"result"`
	}{query.Examples, query.ListExamples()})
}

// handleExample handles GET /api/examples/{client}.
func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	text := s.searcher.CaseStudy(r.Context(), r.PathValue("client"))
	writeJSON(w, logging.FromContext(r.Context()), http.StatusOK, textResponse{Result: text})
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	n, err := s.searcher.Count(r.Context())
	if err != nil {
		log.Error("stats failed", slog.Any("error", err))
		writeJSON(w, log, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, log, http.StatusOK, statsResponse{
		Documents: n,
		Summary:   fmt.Sprintf("Knowledge base contains %d embedded documents", n),
	})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, logging.FromContext(r.Context()), http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}
