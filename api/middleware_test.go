package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestIPRateLimiter_CleanupDropsIdle(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, 1, zap.NewNop())
	l.now = func() time.Time { return now }

	l.getLimiter("10.0.0.1")
	now = now.Add(visitorTTL / 2)
	l.getLimiter("10.0.0.2")
	now = now.Add(visitorTTL/2 + time.Second)
	l.Cleanup()

	if _, ok := l.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor kept")
	}
	if _, ok := l.visitors["10.0.0.2"]; !ok {
		t.Error("recent visitor dropped")
	}
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	l := NewIPRateLimiter(0.001, 1, zap.NewNop())
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if got := send("10.0.0.1:1111"); got != http.StatusNoContent {
		t.Fatalf("first = %d", got)
	}
	if got := send("10.0.0.1:2222"); got != http.StatusTooManyRequests {
		t.Errorf("same ip, new port = %d, want 429", got)
	}
	if got := send("10.0.0.2:1111"); got != http.StatusNoContent {
		t.Errorf("other ip = %d", got)
	}
}

func TestTokenFrom(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{"cookie", "c-token", "", "c-token"},
		{"bearer", "", "Bearer h-token", "h-token"},
		{"cookie wins", "c-token", "Bearer h-token", "c-token"},
		{"other scheme", "", "Basic abc", ""},
		{"none", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := tokenFrom(req); got != tt.want {
				t.Errorf("tokenFrom = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origin      string
		reqOrigin   string
		allowOrigin string
		credentials string
	}{
		{"configured origin", "http://localhost:5173", "http://localhost:5173", "http://localhost:5173", "true"},
		{"other site gets configured origin", "http://localhost:5173", "https://evil.example", "http://localhost:5173", "true"},
		{"wildcard never reflects", "*", "https://evil.example", "*", ""},
		{"unset", "", "https://evil.example", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.origin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
			req.Header.Set("Origin", tt.reqOrigin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.allowOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.allowOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.credentials {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.credentials)
			}
		})
	}
}
