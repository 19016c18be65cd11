package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/54b3r/kbrag-go/internal/logging"
)

// probeTimeout is the maximum time allowed for each dependency probe during
// a readiness check.
const probeTimeout = 5 * time.Second

// Pinger is implemented by any dependency that can report its own
// reachability: the vector store and the embedding backend.
// Implementations must be safe to call from multiple goroutines.
type Pinger interface {
	// Ping returns nil when the dependency is reachable.
	Ping(ctx context.Context) error

	// Name returns a short label used in readiness responses
	// (e.g. "sqlite", "qdrant", "embedder").
	Name() string
}

// readyCheck holds the per-dependency result of a readiness probe.
type readyCheck struct {
	// Name is the dependency label.
	Name string `json:"name"`
	// OK is true when the dependency responded successfully.
	OK bool `json:"ok"`
	// Error contains the failure reason when OK is false.
	Error string `json:"error,omitempty"`
	// LatencyMS is the probe round trip in milliseconds.
	LatencyMS int64 `json:"latency_ms"`
}

// readyResponse is the JSON body returned by GET /api/ready.
type readyResponse struct {
	// Ready is true only when every dependency probe succeeded.
	Ready bool `json:"ready"`
	// Checks contains the per-dependency probe results.
	Checks []readyCheck `json:"checks"`
}

// handleReady handles GET /api/ready. It probes each Pinger in order with a
// short timeout and returns 200 when all succeed, 503 otherwise. Each probe
// outcome is also exported as kbrag_dependency_up.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := readyResponse{Ready: true, Checks: []readyCheck{}}
	for _, p := range s.pingers {
		probeCtx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		start := time.Now()
		err := p.Ping(probeCtx)
		cancel()

		check := readyCheck{Name: p.Name(), OK: err == nil, LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			check.Error = err.Error()
			resp.Ready = false
			log.Warn("readiness probe failed",
				slog.String("dependency", p.Name()),
				slog.Any("error", err),
			)
		}
		s.metrics.observeDependency(p.Name(), err == nil)
		resp.Checks = append(resp.Checks, check)
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, log, status, resp)
}
