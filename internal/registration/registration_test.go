package registration

import (
	"context"
	"testing"

	"taskscheduler/internal/store"
	logx "taskscheduler/pkg/logx"
)

func TestRunFansOutOneHandlerToManyExecs(t *testing.T) {
	st := store.NewMemory()
	decls := []Declaration{{
		Handler: HandlerDescriptor{BeanClassName: "billing.ReportService", MethodName: "run"},
		Specs: []ExecutionSpec{
			{CronExpr: "@every 1m", Desc: "every minute"},
			{CronExpr: "@every 1h", Desc: "every hour", MaxExecCount: 24},
		},
	}}

	summary, err := Run(context.Background(), st, decls, logx.Nop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.HandlersCreated != 1 || summary.ExecsCreated != 2 {
		t.Fatalf("summary = %+v, want 1 handler and 2 execs created", summary)
	}

	handlers, err := st.ListHandlers(context.Background())
	if err != nil {
		t.Fatalf("ListHandlers: %v", err)
	}
	if len(handlers) != 1 {
		t.Fatalf("len(handlers) = %d, want 1", len(handlers))
	}

	execs, err := st.ListExecs(context.Background())
	if err != nil {
		t.Fatalf("ListExecs: %v", err)
	}
	if len(execs) != 2 {
		t.Fatalf("len(execs) = %d, want 2", len(execs))
	}
	for _, e := range execs {
		if e.TaskHandlerKey != handlers[0].Key {
			t.Fatalf("exec %s points at %s, want %s", e.Key, e.TaskHandlerKey, handlers[0].Key)
		}
	}
}

func TestRunIsIdempotentAcrossRestarts(t *testing.T) {
	st := store.NewMemory()
	decls := []Declaration{{
		Handler: HandlerDescriptor{BeanClassName: "billing.ReportService", MethodName: "run"},
		Specs:   []ExecutionSpec{{CronExpr: "@every 1m"}},
	}}

	if _, err := Run(context.Background(), st, decls, logx.Nop()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	execsBefore, _ := st.ListExecs(context.Background())
	if len(execsBefore) != 1 {
		t.Fatalf("setup: expected 1 exec, got %d", len(execsBefore))
	}
	// Simulate prior run's progress: bump execCount.
	exec := execsBefore[0]
	exec.ExecCount = 7
	if err := st.UpdateExec(context.Background(), exec); err != nil {
		t.Fatalf("UpdateExec: %v", err)
	}

	summary, err := Run(context.Background(), st, decls, logx.Nop())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.HandlersCreated != 0 || summary.ExecsCreated != 0 {
		t.Fatalf("summary = %+v, want nothing newly created on re-registration", summary)
	}
	if summary.HandlersReused != 1 || summary.ExecsReused != 1 {
		t.Fatalf("summary = %+v, want handler and exec reused", summary)
	}

	execsAfter, _ := st.ListExecs(context.Background())
	if len(execsAfter) != 1 || execsAfter[0].ExecCount != 7 {
		t.Fatalf("re-registration must preserve execCount, got %+v", execsAfter)
	}
}

func TestDeriveKeysAreStableAndDeterministic(t *testing.T) {
	h := HandlerDescriptor{BeanClassName: "a.B", BeanName: "n", MethodName: "run"}
	if deriveHandlerKey(h) != deriveHandlerKey(h) {
		t.Fatal("deriveHandlerKey must be deterministic")
	}

	spec := ExecutionSpec{CronExpr: "@every 1m"}
	if deriveExecKey(h, spec, 0) != deriveExecKey(h, spec, 0) {
		t.Fatal("deriveExecKey must be deterministic")
	}
	if deriveExecKey(h, spec, 0) == deriveExecKey(h, spec, 1) {
		t.Fatal("deriveExecKey must vary with index so multiple specs don't collide")
	}
}
