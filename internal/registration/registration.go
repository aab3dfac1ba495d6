// Package registration ingests the host's declared handlers and execution
// specs at startup, fanning each declaration out into one TaskHandler row
// and N ExecDetail rows. It never scans for handlers itself: the host
// collaborator hands it a flat list.
package registration

import (
	"context"
	"errors"
	"time"

	"taskscheduler/internal/store"
	logx "taskscheduler/pkg/logx"
)

// HandlerDescriptor identifies one zero-argument method on the host side.
type HandlerDescriptor struct {
	BeanClassName string
	BeanName      string
	MethodName    string
}

// ExecutionSpec is one "run this on this cadence" attached to a handler.
type ExecutionSpec struct {
	CronExpr     string
	Desc         string
	MaxExecCount int64 // 0 means unbounded
}

// Declaration is a handler with one or more execution specs. A Declaration
// with N specs fans out into N ExecDetail rows sharing one TaskHandler row.
type Declaration struct {
	Handler HandlerDescriptor
	Specs   []ExecutionSpec
}

// Summary reports what Run actually did, for startup logging.
type Summary struct {
	HandlersCreated int
	HandlersReused  int
	ExecsCreated    int
	ExecsReused     int
}

// Run ingests every declaration into st. TaskHandler and ExecDetail rows
// that already exist under their derived key (previous-run carryover) are
// reused rather than overwritten, which is what preserves execCount across
// restarts.
func Run(ctx context.Context, st store.Store, declarations []Declaration, log logx.Logger) (Summary, error) {
	var summary Summary

	for _, decl := range declarations {
		handlerKey := deriveHandlerKey(decl.Handler)

		if _, err := st.GetHandler(ctx, handlerKey); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return summary, err
			}
			if err := st.PutHandler(ctx, store.TaskHandler{
				Key:           handlerKey,
				BeanName:      decl.Handler.BeanName,
				BeanClassName: decl.Handler.BeanClassName,
				MethodName:    decl.Handler.MethodName,
			}); err != nil {
				return summary, err
			}
			summary.HandlersCreated++
		} else {
			summary.HandlersReused++
		}

		for i, spec := range decl.Specs {
			execKey := deriveExecKey(decl.Handler, spec, i)

			if _, err := st.GetExec(ctx, execKey); err == nil {
				summary.ExecsReused++
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return summary, err
			}

			if err := st.PutExec(ctx, store.ExecDetail{
				Key:            execKey,
				Desc:           spec.Desc,
				CronExpr:       spec.CronExpr,
				TaskHandlerKey: handlerKey,
				InitTime:       time.Now(),
				State:          store.StateInit,
				MaxExecCount:   spec.MaxExecCount,
			}); err != nil {
				return summary, err
			}
			summary.ExecsCreated++
		}
	}

	if !log.IsZero() {
		log.Info("registration complete",
			logx.Int("handlers_created", summary.HandlersCreated),
			logx.Int("handlers_reused", summary.HandlersReused),
			logx.Int("execs_created", summary.ExecsCreated),
			logx.Int("execs_reused", summary.ExecsReused),
		)
	}
	return summary, nil
}
