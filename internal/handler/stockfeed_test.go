package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func feedHandler(origins []string) *StockFeedHandler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStockFeedHandler(nil, log, origins)
}

func originRequest(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws/inventory", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestStockFeedOriginCheck(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"exact match", []string{"http://app.local"}, "http://app.local", true},
		{"mismatch", []string{"http://app.local"}, "http://evil.example", false},
		{"wildcard", []string{"*"}, "http://anywhere.example", true},
		{"no origin header", []string{"http://app.local"}, "", true},
		{"empty allowlist", nil, "http://app.local", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			check := feedHandler(tc.allowed).getUpgrader().CheckOrigin
			if got := check(originRequest(tc.origin)); got != tc.want {
				t.Fatalf("origin %q with allowlist %v: got %v, want %v", tc.origin, tc.allowed, got, tc.want)
			}
		})
	}
}
