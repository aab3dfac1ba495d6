// Package recovery re-arms live timers for every task left INIT, RUNNING,
// PAUSED, or BLOCKED when the process last stopped. It runs once at startup,
// after registration and before the admin surface starts serving.
package recovery

import (
	"context"
	"errors"

	"taskscheduler/internal/scheduler"
	"taskscheduler/internal/store"
	logx "taskscheduler/pkg/logx"
)

// Scheduler is the subset of scheduler.Scheduler recovery depends on.
// ResumeTask is used rather than ScheduleTask because it is the one entry
// point that both sets state = RUNNING and accepts every non-terminal
// starting state (INIT, PAUSED, BLOCKED, RUNNING).
type Scheduler interface {
	ResumeTask(ctx context.Context, key string) error
}

// Run lists every non-terminal ExecDetail from st and re-arms it. A record
// whose TaskHandler no longer resolves is moved to ERROR rather than left to
// fail silently on its first fire. Run never returns an error for a single
// bad record: it logs and continues so one broken task can't block recovery
// of the rest.
func Run(ctx context.Context, st store.Store, sched Scheduler, log logx.Logger) error {
	execs, err := st.Recover(ctx)
	if err != nil {
		return err
	}

	for _, exec := range execs {
		if err := sched.ResumeTask(ctx, exec.Key); err != nil {
			if errors.Is(err, scheduler.ErrHandlerNotFound) || errors.Is(err, scheduler.ErrInvalidCron) {
				_ = st.UpdateStateToError(ctx, exec.Key, err.Error())
				if !log.IsZero() {
					log.Warn("recovered task moved to error", logx.String("key", exec.Key), logx.Err(err))
				}
				continue
			}
			if !log.IsZero() {
				log.Error("failed to recover task", logx.String("key", exec.Key), logx.Err(err))
			}
			continue
		}
		if !log.IsZero() {
			log.Info("recovered task", logx.String("key", exec.Key), logx.String("state", exec.State.String()))
		}
	}
	return nil
}
