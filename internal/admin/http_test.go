package admin

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"taskscheduler/internal/store"
)

func TestHandlerListReturnsEnvelope(t *testing.T) {
	svc, st, _ := newTestService(t)
	if err := st.PutExec(context.Background(), store.ExecDetail{Key: "a", CronExpr: "@every 1m", State: store.StateInit}); err != nil {
		t.Fatalf("PutExec: %v", err)
	}

	h := NewHandler(svc, 0)
	req := httptest.NewRequest("GET", "/tasks", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != 200 {
		t.Fatalf("envelope code = %d, want 200", env.Code)
	}
}

func TestHandlerQueryUnknownReturns404(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc, 0)

	req := httptest.NewRequest("GET", "/tasks/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerCancelAction(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc, 0)

	req := httptest.NewRequest("POST", "/tasks/missing/cancel", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200 (idempotent cancel)", rec.Code)
	}
}

func TestHandlerThrottlesOverLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc, 1) // burst of 1

	req := httptest.NewRequest("GET", "/tasks", nil)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	if first.Code != 200 {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	if second.Code != 429 {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
}
