package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := newRateLimiter(0.001, 3) // negligible refill

	for i := range 3 {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d denied, want allowed (burst 3)", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request 4 allowed, want denied after burst exhausted")
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := newRateLimiter(0.001, 1)

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request from 10.0.0.1 denied")
	}
	if rl.allow("10.0.0.1") {
		t.Error("second request from 10.0.0.1 allowed, want denied")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("request from 10.0.0.2 denied, want independent bucket")
	}
}

func TestRateLimiter_DropsStaleVisitors(t *testing.T) {
	rl := newRateLimiter(0.001, 1)
	rl.cleanupEvery = time.Millisecond
	rl.staleAfter = time.Millisecond

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request from 10.0.0.1 denied")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second request from 10.0.0.1 allowed, want bucket exhausted")
	}

	time.Sleep(5 * time.Millisecond)

	// A request from any IP triggers the sweep; 10.0.0.1 has gone stale.
	rl.allow("10.0.0.2")

	rl.mu.Lock()
	_, present := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()
	if present {
		t.Error("stale visitor 10.0.0.1 still tracked after cleanup")
	}

	// With a fresh bucket the IP gets its burst back; the negligible refill
	// rate could not have restored a token this fast.
	if !rl.allow("10.0.0.1") {
		t.Error("request from 10.0.0.1 denied after cleanup, want fresh bucket")
	}
}

func TestRateLimitMiddleware_Exceeded(t *testing.T) {
	rl := newRateLimiter(0.001, 1)
	handler := rateLimitMiddleware(rl, false, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/ask", nil)
	r.RemoteAddr = "10.0.0.1:54321"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want %q", got, "1")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xRealIP    string
		xff        string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "proxy headers ignored when untrusted", remoteAddr: "10.0.0.1:1234", xRealIP: "1.2.3.4", want: "10.0.0.1"},
		{name: "x-real-ip trusted", remoteAddr: "10.0.0.1:1234", xRealIP: "1.2.3.4", trustProxy: true, want: "1.2.3.4"},
		{name: "xff first ip", remoteAddr: "10.0.0.1:1234", xff: "1.2.3.4, 5.6.7.8", trustProxy: true, want: "1.2.3.4"},
		{name: "invalid header falls back", remoteAddr: "10.0.0.1:1234", xRealIP: "not-an-ip", trustProxy: true, want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}

			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
