package recovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskscheduler/internal/scheduler"
	"taskscheduler/internal/store"
	logx "taskscheduler/pkg/logx"
)

type fakeScheduler struct {
	scheduled []string
	failWith  map[string]error
}

func (f *fakeScheduler) ResumeTask(ctx context.Context, key string) error {
	if err, ok := f.failWith[key]; ok {
		return err
	}
	f.scheduled = append(f.scheduled, key)
	return nil
}

func putExec(t *testing.T, st store.Store, key string, state store.State) {
	t.Helper()
	if err := st.PutExec(context.Background(), store.ExecDetail{
		Key: key, CronExpr: "@every 1m", InitTime: time.Now(), State: state,
	}); err != nil {
		t.Fatalf("PutExec: %v", err)
	}
}

func TestRunReArmsRunningAndInitTasks(t *testing.T) {
	st := store.NewMemory()
	putExec(t, st, "running", store.StateRunning)
	putExec(t, st, "init", store.StateInit)
	putExec(t, st, "errored", store.StateError)

	sched := &fakeScheduler{failWith: map[string]error{}}
	if err := Run(context.Background(), st, sched, logx.Nop()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sched.scheduled) != 2 {
		t.Fatalf("scheduled = %v, want exactly running and init", sched.scheduled)
	}
	for _, key := range sched.scheduled {
		if key == "errored" {
			t.Fatal("ERROR tasks must not be recovered")
		}
	}
}

func TestRunResumesPausedTasks(t *testing.T) {
	st := store.NewMemory()
	putExec(t, st, "paused", store.StatePaused)

	sched := &fakeScheduler{}
	if err := Run(context.Background(), st, sched, logx.Nop()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sched.scheduled) != 1 || sched.scheduled[0] != "paused" {
		t.Fatalf("expected paused task to be resumed, got %v", sched.scheduled)
	}
}

func TestRunMovesUnresolvableHandlerTasksToError(t *testing.T) {
	st := store.NewMemory()
	putExec(t, st, "broken", store.StateRunning)

	sched := &fakeScheduler{failWith: map[string]error{
		"broken": fmt.Errorf("%w: broken", scheduler.ErrHandlerNotFound),
	}}

	if err := Run(context.Background(), st, sched, logx.Nop()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	exec, err := st.GetExec(context.Background(), "broken")
	if err != nil {
		t.Fatalf("GetExec: %v", err)
	}
	if exec.State != store.StateError {
		t.Fatalf("state = %v, want StateError", exec.State)
	}
}
