package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/bizledger/internal/security/audit"
)

func TestResourceID(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/v1/products/p-1", "p-1"},
		{"/api/v1/products/p-1/stock", "p-1"},
		{"/api/v1/transactions/txn-9", "txn-9"},
		{"/api/v1/contacts", ""},
		{"/api/v1/auth/logout", ""},
		{"/healthz", ""},
	}
	for _, tc := range cases {
		if got := resourceID(tc.path); got != tc.want {
			t.Errorf("resourceID(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestAuditMiddlewareRecordsResourceID(t *testing.T) {
	var buf bytes.Buffer
	auditLog := audit.NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AuditMiddleware(auditLog)(next)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/p-1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var record struct {
		Action     string `json:"action"`
		Resource   string `json:"resource"`
		ResourceID string `json:"resource_id"`
	}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode audit record: %v (raw %q)", err, buf.String())
	}
	if record.Action != "delete" || record.Resource != "/api/v1/products/p-1" {
		t.Fatalf("unexpected audit record: %+v", record)
	}
	if record.ResourceID != "p-1" {
		t.Fatalf("expected resource id p-1, got %q", record.ResourceID)
	}
}
