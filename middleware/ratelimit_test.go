package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote    string
		forwarded string
		hops      int
		want      string
	}{
		{"192.0.2.1:1234", "", 0, "192.0.2.1"},
		{"192.0.2.1:1234", "203.0.113.9, 10.0.0.1", 0, "192.0.2.1"},
		{"192.0.2.1:1234", "203.0.113.9, 10.0.0.1", 1, "10.0.0.1"},
		{"192.0.2.1:1234", "198.51.100.4, 203.0.113.9, 10.0.0.1", 2, "203.0.113.9"},
		{"192.0.2.1:1234", "10.0.0.1", 3, "10.0.0.1"},
		{"192.0.2.1:1234", "", 1, "192.0.2.1"},
		{"pipe", "", 0, "pipe"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = tt.remote
		if tt.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tt.forwarded)
		}
		if got := clientIP(req, tt.hops); got != tt.want {
			t.Errorf("clientIP(%q, %q, %d) = %q, want %q", tt.remote, tt.forwarded, tt.hops, got, tt.want)
		}
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2)
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	var last *httptest.ResponseRecorder
	for i, status := range want {
		req := httptest.NewRequest("POST", "/api/session", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != status {
			t.Errorf("request %d: got status %d, want %d", i, rr.Code, status)
		}
		last = rr
	}

	if got := last.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Expected Retry-After 60, got %q", got)
	}
	var body struct {
		Error   string         `json:"error"`
		Details map[string]int `json:"details"`
	}
	if err := json.NewDecoder(last.Body).Decode(&body); err != nil {
		t.Fatalf("Error decoding body: %v", err)
	}
	if body.Error != ErrRateLimited || body.Details["retryAfterSeconds"] != 60 {
		t.Errorf("Unexpected 429 body: %+v", body)
	}
}

func TestRateLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 1)
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	allowed := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("POST", "/api/session", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusNoContent {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("Expected 1 request allowed from one socket, got %d", allowed)
	}

	// Behind one trusted proxy, a client prefix cannot change the key
	rl.TrustForwardedHops(1)
	allowed = 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("POST", "/api/session", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d, 198.51.100.7", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusNoContent {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("Expected 1 request allowed for the proxied client, got %d", allowed)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Second), 1)
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	if removed := rl.sweep(time.Now()); removed != 0 {
		t.Errorf("fresh visitors swept: %d", removed)
	}
	if removed := rl.sweep(time.Now().Add(time.Hour)); removed != 2 {
		t.Errorf("expected 2 idle visitors swept, got %d", removed)
	}

	// Stop is safe to call twice
	rl.Stop()
}
