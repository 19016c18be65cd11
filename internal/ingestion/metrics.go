package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chunk count stages.
const (
	stageRaw          = "raw"
	stageDeduplicated = "deduplicated"
	stagePersisted    = "persisted"
)

// Run modes.
const (
	modeRebuild = "rebuild"
	modeAdd     = "add"
)

// Metrics holds the Prometheus metrics owned by the ingestion pipeline.
type Metrics struct {
	chunksTotal *prometheus.CounterVec
	runsTotal   *prometheus.CounterVec
}

// NewMetrics registers the ingestion metrics against reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		chunksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbrag",
			Subsystem: "ingestion",
			Name:      "chunks_total",
			Help:      "Chunks seen by the ingestion pipeline, partitioned by stage.",
		}, []string{"stage"}),

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbrag",
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Completed ingestion runs, partitioned by mode and outcome.",
		}, []string{"mode", "outcome"}),
	}
}

func (m *Metrics) observeChunks(stage string, n int) {
	if m == nil {
		return
	}
	m.chunksTotal.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) observeRun(mode string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runsTotal.WithLabelValues(mode, outcome).Inc()
}
