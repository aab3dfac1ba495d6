// Package admin exposes the scheduler's management surface as a uniform
// envelope, the shape a host-side HTTP handler would marshal directly.
package admin

import (
	"context"
	"errors"

	"taskscheduler/internal/scheduler"
	"taskscheduler/internal/store"
)

// Envelope is the uniform response shape for every admin operation.
type Envelope struct {
	Code int    `json:"code"`
	Info string `json:"info,omitempty"`
	Data any    `json:"data,omitempty"`
}

func ok(data any) Envelope       { return Envelope{Code: 200, Data: data} }
func fail(code int, info string) Envelope { return Envelope{Code: code, Info: info} }

// Service wraps a Scheduler and a Store behind the seven management entry
// points from the external interface contract.
type Service struct {
	sched *scheduler.Scheduler
	store store.Store
}

func New(sched *scheduler.Scheduler, st store.Store) *Service {
	return &Service{sched: sched, store: st}
}

// List returns a projection of every ExecDetail.
func (s *Service) List(ctx context.Context) Envelope {
	execs, err := s.store.ListExecs(ctx)
	if err != nil {
		return fail(500, err.Error())
	}
	return ok(execs)
}

// Query returns one ExecDetail projection.
func (s *Service) Query(ctx context.Context, key string) Envelope {
	exec, err := s.store.GetExec(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(404, "no such task: "+key)
		}
		return fail(500, err.Error())
	}
	return ok(exec)
}

// QueryHandler returns one TaskHandler projection.
func (s *Service) QueryHandler(ctx context.Context, key string) Envelope {
	h, err := s.store.GetHandler(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(404, "no such handler: "+key)
		}
		return fail(500, err.Error())
	}
	return ok(h)
}

// Cancel deletes a task. Deleting an unknown key is treated as idempotent
// success per the duplicate/illegal-transition policy.
func (s *Service) Cancel(ctx context.Context, key string) Envelope {
	if err := s.sched.DeleteTask(ctx, key); err != nil {
		return fail(500, err.Error())
	}
	return ok(nil)
}

// Pause pauses a task. Pausing an unknown key is idempotent success.
func (s *Service) Pause(ctx context.Context, key string) Envelope {
	if err := s.sched.PauseTask(ctx, key); err != nil {
		return fail(500, err.Error())
	}
	return ok(nil)
}

// Resume resumes a task.
func (s *Service) Resume(ctx context.Context, key string) Envelope {
	if err := s.sched.ResumeTask(ctx, key); err != nil {
		if errors.Is(err, scheduler.ErrNotFound) {
			return fail(404, "no such task: "+key)
		}
		// Resolution/invalid-cron errors on resume are recorded as ERROR by
		// the scheduler itself; the caller still gets success per the
		// illegal-transition policy, since the request was accepted.
		return ok(nil)
	}
	return ok(nil)
}

// Schedule arms a task that is not yet running.
func (s *Service) Schedule(ctx context.Context, key string) Envelope {
	if err := s.sched.ScheduleTask(ctx, key); err != nil {
		if errors.Is(err, scheduler.ErrNotFound) {
			return fail(404, "no such task: "+key)
		}
		if errors.Is(err, scheduler.ErrHandlerNotFound) || errors.Is(err, scheduler.ErrInvalidCron) {
			return fail(422, err.Error())
		}
		return fail(500, err.Error())
	}
	return ok(nil)
}
