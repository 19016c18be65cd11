package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/kbrag-go/internal/query"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. Queries
	// embed text, so this covers one embedding round trip plus the search.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on
	// POST /api/query (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all /api/* routes except health
	// and readiness. If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// searcher is the query surface the handlers call. *query.Service
// satisfies it; tests inject a fake.
type searcher interface {
	// Search returns reranked results or a store error.
	Search(ctx context.Context, req query.Request) ([]query.Result, error)
	// Methodology returns the rendered methodology for a task type.
	Methodology(ctx context.Context, task string) string
	// CaseStudy returns the rendered case study for a client.
	CaseStudy(ctx context.Context, client string) string
	// Count returns the number of chunks in the collection.
	Count(ctx context.Context) (int, error)
}

// Server is the HTTP server in front of the query service.
type Server struct {
	// searcher answers every /api query route.
	searcher searcher
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus metrics owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query. BoostAgency is a
// pointer so an absent field keeps the default of true.
type queryRequest struct {
	// Query is the natural-language query text.
	Query string `json:"query"`
	// NResults is the number of results (default 10).
	NResults int `json:"n_results,omitempty"`
	// ContentType is an optional exact-match filter.
	ContentType string `json:"content_type,omitempty"`
	// FilterType is the deprecated alias of ContentType.
	FilterType string `json:"filter_type,omitempty"`
	// Topic is an optional exact-match filter.
	Topic string `json:"topic,omitempty"`
	// BoostAgency favours agency-authored chunks (default true).
	BoostAgency *bool `json:"boost_agency,omitempty"`
}

// queryResult is one reranked match in a POST /api/query response.
type queryResult struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	ContentType string  `json:"content_type"`
	Topic       string  `json:"topic"`
	Score       float64 `json:"score"`
	Distance    float64 `json:"distance"`
	Document    string  `json:"document"`
}

// queryResponse is the JSON response for POST /api/query. Result carries
// the same markdown rendering the MCP tool returns.
type queryResponse struct {
	Result  string        `json:"result"`
	Results []queryResult `json:"results"`
}

// textResponse is the JSON response for the rendered-text routes.
type textResponse struct {
	Result string `json:"result"`
}

// statsResponse is the JSON response for GET /api/stats.
type statsResponse struct {
	Documents int    `json:"documents"`
	Summary   string `json:"summary"`
}

// errorResponse is the JSON body sent with non-2xx API responses.
type errorResponse struct {
	Error string `json:"error"`
}
