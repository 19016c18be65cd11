package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// okHandler is a trivial handler used to verify that allowed requests reach
// the downstream handler.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func hit(h http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(100, 5, discardLogger())
	defer stop()
	h := rl.middleware(okHandler)

	for i := range 5 {
		if w := hit(h, "127.0.0.1:12345"); w.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 1, discardLogger())
	defer stop()
	rejected := 0
	rl.onReject = func() { rejected++ }
	h := rl.middleware(okHandler)

	hit(h, "10.0.0.2:1234")
	w := hit(h, "10.0.0.2:1234")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After: 1, got %q", w.Header().Get("Retry-After"))
	}
	if rejected != 1 {
		t.Errorf("expected onReject once, got %d", rejected)
	}
}

func TestRateLimit_PerIPIsolation(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 1, discardLogger())
	defer stop()
	h := rl.middleware(okHandler)

	for range 5 {
		hit(h, "192.168.1.1:1111")
	}
	if w := hit(h, "192.168.1.2:2222"); w.Code != http.StatusOK {
		t.Errorf("IP B: expected 200, got %d", w.Code)
	}
}

func TestRateLimit_Sweep(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(10, 10, discardLogger())
	defer stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.allow("10.0.0.1")
	rl.allow("10.0.0.2")

	now = now.Add(staleAfter / 2)
	rl.allow("10.0.0.2")

	now = now.Add(staleAfter/2 + time.Second)
	rl.sweep()

	if got := rl.size(); got != 1 {
		t.Errorf("expected 1 entry after sweep, got %d", got)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		remoteAddr string
		wantIP     string
	}{
		{"127.0.0.1:54321", "127.0.0.1"},
		{"10.0.0.1:80", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"noport", "noport"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		if got := clientIP(req); got != tc.wantIP {
			t.Errorf("remoteAddr=%q: expected %q, got %q", tc.remoteAddr, tc.wantIP, got)
		}
	}
}
