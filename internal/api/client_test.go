package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/model"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "tijucas-sc", time.Second, zap.NewNop())
}

func TestListReportsDecodesEnvelope(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/reports" {
			t.Errorf("path = %q, want /api/v1/reports", r.URL.Path)
		}
		if got := r.Header.Get("X-Tenant"); got != "tijucas-sc" {
			t.Errorf("X-Tenant = %q, want tijucas-sc", got)
		}
		if got := r.URL.Query().Get("status"); got != "pending" {
			t.Errorf("status query = %q, want pending", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "r1", "title": "Buraco", "status": "pending"},
			},
			"meta": map[string]any{"page": 1, "per_page": 20, "total": 1, "last_page": 1},
		})
	})

	q := url.Values{}
	q.Set("status", "pending")
	reports, meta, err := c.ListReports(context.Background(), q)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 1 || reports[0].ID != "r1" {
		t.Errorf("reports = %+v, want one record r1", reports)
	}
	if meta.Total != 1 {
		t.Errorf("meta.Total = %d, want 1", meta.Total)
	}
}

func TestCreateReportSendsIdempotencyKey(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "abc123" {
			t.Errorf("Idempotency-Key = %q, want abc123", got)
		}
		var draft model.ReportDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "r9", "protocol": "2026-000777", "title": draft.Title},
		})
	})

	created, err := c.CreateReport(context.Background(), model.ReportDraft{Title: "Poste apagado"}, "abc123")
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if created.ID != "r9" || created.Protocol != "2026-000777" {
		t.Errorf("created = %+v", created)
	}
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "title is required",
			"code":    "validation_failed",
		})
	})

	_, err := c.CreateReport(context.Background(), model.ReportDraft{}, "k")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Code != "validation_failed" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		transient  bool
		validation bool
		conflict   bool
	}{
		{"server error", &Error{Status: 500}, true, false, false},
		{"bad gateway", &Error{Status: 502}, true, false, false},
		{"throttled", &Error{Status: 429}, true, false, false},
		{"timeout status", &Error{Status: 408}, true, false, false},
		{"validation", &Error{Status: 422}, false, true, false},
		{"bad request", &Error{Status: 400}, false, true, false},
		{"conflict", &Error{Status: 409}, false, false, true},
		{"transport", context.DeadlineExceeded, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient = %v, want %v", got, tt.transient)
			}
			if got := IsValidation(tt.err); got != tt.validation {
				t.Errorf("IsValidation = %v, want %v", got, tt.validation)
			}
			if got := IsConflict(tt.err); got != tt.conflict {
				t.Errorf("IsConflict = %v, want %v", got, tt.conflict)
			}
		})
	}
}

func TestUnreachableServerIsTransient(t *testing.T) {
	// Closed port: transport-level failure, no HTTP status.
	c := NewClient("http://127.0.0.1:1", "global", 500*time.Millisecond, zap.NewNop())
	_, _, err := c.ListAlerts(context.Background())
	if err == nil {
		t.Fatal("expected error from unreachable server")
	}
	if !IsTransient(err) {
		t.Errorf("transport failure should classify as transient, got %v", err)
	}
}
