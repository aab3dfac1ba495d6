package runnable

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskscheduler/internal/store"
)

func newExec(t *testing.T, st store.Store, key string, state store.State, maxExecCount int64) {
	t.Helper()
	if err := st.PutExec(context.Background(), store.ExecDetail{
		Key:          key,
		CronExpr:     "@every 1s",
		InitTime:     time.Now(),
		State:        state,
		MaxExecCount: maxExecCount,
	}); err != nil {
		t.Fatalf("PutExec: %v", err)
	}
}

func TestFireStaleWhenRecordMissing(t *testing.T) {
	st := store.NewMemory()
	r := &Runnable{Key: "missing", Store: st, Callable: func(ctx context.Context) error { return nil }}

	outcome, err := r.Fire(context.Background())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if outcome != OutcomeStale {
		t.Fatalf("outcome = %v, want OutcomeStale", outcome)
	}
}

func TestFireStaleWhenNotRunning(t *testing.T) {
	st := store.NewMemory()
	newExec(t, st, "k1", store.StatePaused, 0)

	called := false
	r := &Runnable{Key: "k1", Store: st, Callable: func(ctx context.Context) error { called = true; return nil }}

	outcome, err := r.Fire(context.Background())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if outcome != OutcomeStale {
		t.Fatalf("outcome = %v, want OutcomeStale", outcome)
	}
	if called {
		t.Fatal("callable must not run when record is not RUNNING")
	}
}

func TestFireContinuesOnSuccessUnderCap(t *testing.T) {
	st := store.NewMemory()
	newExec(t, st, "k2", store.StateRunning, 0)

	r := &Runnable{Key: "k2", Store: st, Callable: func(ctx context.Context) error { return nil }}

	outcome, err := r.Fire(context.Background())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if outcome != OutcomeContinue {
		t.Fatalf("outcome = %v, want OutcomeContinue", outcome)
	}

	exec, err := st.GetExec(context.Background(), "k2")
	if err != nil {
		t.Fatalf("GetExec: %v", err)
	}
	if exec.ExecCount != 1 {
		t.Fatalf("ExecCount = %d, want 1", exec.ExecCount)
	}
	if exec.LastExecTime.IsZero() {
		t.Fatal("expected LastExecTime to be set")
	}
}

func TestFireCappedDeletesRecord(t *testing.T) {
	st := store.NewMemory()
	newExec(t, st, "k3", store.StateRunning, 1)

	r := &Runnable{Key: "k3", Store: st, Callable: func(ctx context.Context) error { return nil }}

	outcome, err := r.Fire(context.Background())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if outcome != OutcomeCapped {
		t.Fatalf("outcome = %v, want OutcomeCapped", outcome)
	}

	if _, err := st.GetExec(context.Background(), "k3"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected record to be deleted, got err=%v", err)
	}
}

func TestFireErrorSetsStateErrorAndNeverRetries(t *testing.T) {
	st := store.NewMemory()
	newExec(t, st, "k4", store.StateRunning, 0)

	boom := errors.New("boom")
	r := &Runnable{Key: "k4", Store: st, Callable: func(ctx context.Context) error { return boom }}

	outcome, err := r.Fire(context.Background())
	if outcome != OutcomeErrored {
		t.Fatalf("outcome = %v, want OutcomeErrored", outcome)
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %v", err)
	}
	if !errors.Is(execErr, boom) {
		t.Fatalf("expected unwrap to reach original error, got %v", execErr.Unwrap())
	}

	exec, getErr := st.GetExec(context.Background(), "k4")
	if getErr != nil {
		t.Fatalf("GetExec: %v", getErr)
	}
	if exec.State != store.StateError {
		t.Fatalf("state = %v, want StateError", exec.State)
	}
	if exec.ErrorMsg == "" {
		t.Fatal("expected ErrorMsg to be populated")
	}
}

func TestFireRecoversFromCallablePanic(t *testing.T) {
	st := store.NewMemory()
	newExec(t, st, "k5", store.StateRunning, 0)

	r := &Runnable{Key: "k5", Store: st, Callable: func(ctx context.Context) error { panic("kaboom") }}

	outcome, err := r.Fire(context.Background())
	if outcome != OutcomeErrored {
		t.Fatalf("outcome = %v, want OutcomeErrored", outcome)
	}
	if err == nil {
		t.Fatal("expected a recovered panic to surface as an error")
	}

	exec, getErr := st.GetExec(context.Background(), "k5")
	if getErr != nil {
		t.Fatalf("GetExec: %v", getErr)
	}
	if exec.State != store.StateError {
		t.Fatalf("state = %v, want StateError", exec.State)
	}
}

func TestFireNilCallableIsAnError(t *testing.T) {
	st := store.NewMemory()
	newExec(t, st, "k6", store.StateRunning, 0)

	r := &Runnable{Key: "k6", Store: st}

	outcome, err := r.Fire(context.Background())
	if outcome != OutcomeErrored {
		t.Fatalf("outcome = %v, want OutcomeErrored", outcome)
	}
	if err == nil {
		t.Fatal("expected an error for a nil callable")
	}
}
