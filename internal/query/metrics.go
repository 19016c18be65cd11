package query

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes.
const (
	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

// Metrics holds the Prometheus metrics owned by the query service.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	durationSeconds prometheus.Histogram
}

// NewMetrics registers the query metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbrag",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Knowledge base queries, partitioned by outcome: ok, empty or error.",
		}, []string{"outcome"}),

		durationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kbrag",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Latency of knowledge base queries including embedding and reranking.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) observe(start time.Time, results int, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	switch {
	case err != nil:
		outcome = outcomeError
	case results == 0:
		outcome = outcomeEmpty
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.durationSeconds.Observe(time.Since(start).Seconds())
}
