// Package runnable wraps one fire of a scheduled job's callable: the
// pre-flight re-check, the callable invocation, and the post-fire state
// transition. Errors from the user callable are recorded into durable state
// and never propagated to the scheduling thread pool.
package runnable

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"taskscheduler/internal/handler"
	"taskscheduler/internal/store"
	logx "taskscheduler/pkg/logx"
)

// Outcome tells the caller (the Scheduler's live timer loop) what happened
// and whether the live timer must stop.
type Outcome int

const (
	// OutcomeContinue means the fire completed successfully and the live
	// timer should compute its next fire time and keep running.
	OutcomeContinue Outcome = iota
	// OutcomeStale means the durable record was gone or no longer RUNNING;
	// the live timer must stop without mutating durable state further.
	OutcomeStale
	// OutcomeErrored means the user callable returned an error or panicked;
	// durable state is now ERROR and the live timer must stop.
	OutcomeErrored
	// OutcomeCapped means execCount reached maxExecCount; the record has
	// been deleted from the store and the live timer must stop.
	OutcomeCapped
)

// ExecutionError marks an error raised by a user callable. It always maps
// to ERROR and is never retried.
type ExecutionError struct {
	Key string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("runnable %s: execution error: %v", e.Key, e.Err)
}
func (e *ExecutionError) Unwrap() error { return e.Err }

// Runnable wraps one ExecDetail key plus its resolved callable.
type Runnable struct {
	Key      string
	Store    store.Store
	Callable handler.Callable
	Timeout  time.Duration
	Log      logx.Logger
}

// Fire executes the five-step protocol from the component contract.
func (r *Runnable) Fire(ctx context.Context) (Outcome, error) {
	exec, err := r.Store.GetExec(ctx, r.Key)
	if err != nil {
		// Step 1: record gone. Nothing to clean up in the store.
		return OutcomeStale, nil
	}

	if exec.State != store.StateRunning {
		// Step 2: race with pause/delete/cancel.
		return OutcomeStale, nil
	}

	now := time.Now()
	exec, err = r.Store.IncrementExecCount(ctx, r.Key, now)
	if err != nil {
		return OutcomeStale, nil
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	runErr, stack := r.invoke(runCtx)
	if runErr != nil {
		execErr := &ExecutionError{Key: r.Key, Err: runErr}
		_ = r.Store.UpdateStateToError(ctx, r.Key, execErr.Error())
		if !r.Log.IsZero() {
			r.Log.Warn("scheduled fire failed", logx.String("key", r.Key), logx.Any("err", runErr), logx.Stack(stack))
		}
		return OutcomeErrored, execErr
	}

	if exec.AtCap() {
		_ = r.Store.DeleteExec(ctx, r.Key)
		return OutcomeCapped, nil
	}

	return OutcomeContinue, nil
}

// invoke runs the callable, recovering a panic into an error. The stack is
// returned separately so callers can log it as a structured field rather
// than burying it in the error message stored as durable state.
func (r *Runnable) invoke(ctx context.Context) (err error, stack string) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			stack = string(debug.Stack())
		}
	}()
	if r.Callable == nil {
		return errors.New("runnable: callable is nil"), ""
	}
	return r.Callable(ctx), ""
}
