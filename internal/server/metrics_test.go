package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Endpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil, nil)

	// Generate one observation so the vectors are non-empty.
	do(t, s.Handler(), http.MethodGet, "/api/health", "")

	w := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "kbrag_http_requests_total") {
		t.Error("kbrag_http_requests_total missing from /metrics output")
	}
}

func TestMetrics_InstrumentLabels(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil, nil)

	do(t, s.Handler(), http.MethodPost, "/api/query", `{"query":"x"}`)
	do(t, s.Handler(), http.MethodPost, "/api/query", `{}`)

	if got := testutil.ToFloat64(s.metrics.httpRequestsTotal.WithLabelValues(http.MethodPost, "query", "200")); got != 1 {
		t.Errorf("query 200: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(s.metrics.httpRequestsTotal.WithLabelValues(http.MethodPost, "query", "400")); got != 1 {
		t.Errorf("query 400: want 1, got %v", got)
	}
}

func TestMetrics_RateLimitedCounter(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil, &Config{RateLimit: 0.001, RateBurst: 1})

	for range 3 {
		do(t, s.Handler(), http.MethodPost, "/api/query", `{"query":"x"}`)
	}
	if got := testutil.ToFloat64(s.metrics.rateLimitedTotal); got != 2 {
		t.Errorf("want 2 rejections, got %v", got)
	}
}
