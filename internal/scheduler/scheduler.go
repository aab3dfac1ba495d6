// Package scheduler owns the live timer table: one goroutine per armed
// task, each acquiring a thread pool permit per fire and re-arming itself
// for the next one.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskscheduler/internal/eventbus"
	"taskscheduler/internal/handler"
	"taskscheduler/internal/pool"
	"taskscheduler/internal/runtime/supervisor"
	"taskscheduler/internal/store"
	"taskscheduler/internal/trigger"
	logx "taskscheduler/pkg/logx"
)

// acquireRetries and acquireInitialBackoff govern the retry-on-reject policy
// applied when a live timer fires but the thread pool has no free permit:
// five attempts, starting at one second and doubling each time.
const (
	acquireRetries        = 5
	acquireInitialBackoff = 1 * time.Second
)

// Scheduler arms and disarms live timers against durable ExecDetail records.
type Scheduler struct {
	store    store.Store
	handlers *handler.Registry
	pool     *pool.Pool
	sup      *supervisor.Supervisor
	log      logx.Logger

	// parse is overridable in tests to avoid waiting on real cron cadences.
	parse func(expr string) (trigger.Trigger, error)

	execTimeout time.Duration

	// retryAttempts/retryBackoff are overridable in tests; production code
	// gets acquireRetries/acquireInitialBackoff via New.
	retryAttempts int
	retryBackoff  time.Duration

	bus eventbus.Bus

	mu     sync.Mutex
	timers map[string]context.CancelFunc
}

// Option configures optional Scheduler behavior.
type Option func(*Scheduler)

// WithEventBus attaches a lifecycle event publisher. Lifecycle transitions
// (scheduled/paused/resumed/deleted/blocked/capped/errored) are published as
// best-effort, non-blocking signals for observers such as admin dashboards;
// nothing in the scheduler depends on anyone subscribing.
func WithEventBus(bus eventbus.Bus) Option {
	return func(s *Scheduler) { s.bus = bus }
}

// New builds a Scheduler. execTimeout bounds each fire's callable invocation;
// zero means no per-fire timeout.
func New(st store.Store, handlers *handler.Registry, p *pool.Pool, sup *supervisor.Supervisor, log logx.Logger, execTimeout time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:         st,
		handlers:      handlers,
		pool:          p,
		sup:           sup,
		log:           log,
		parse:         trigger.Parse,
		execTimeout:   execTimeout,
		retryAttempts: acquireRetries,
		retryBackoff:  acquireInitialBackoff,
		timers:        map[string]context.CancelFunc{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publish is a no-op when no event bus is attached.
func (s *Scheduler) publish(eventType, key string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: eventType, Data: key})
}

// ScheduleTask arms a live timer for a freshly-registered (INIT) ExecDetail
// record. The record must already resolve to a registered handler and a
// parseable cron expression; ScheduleTask fails fast rather than discovering
// the problem on the first fire. A record that is already live or past INIT
// is left alone: ScheduleTask is not a re-arm operation, that is ResumeTask's
// job.
func (s *Scheduler) ScheduleTask(ctx context.Context, key string) error {
	exec, err := s.store.GetExec(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return err
	}
	if exec.State != store.StateInit || s.hasTimer(key) {
		return nil
	}
	if exec.AtCap() {
		return s.deleteAtCap(ctx, key)
	}

	callable, trig, err := s.resolve(ctx, exec)
	if err != nil {
		return err
	}

	if err := s.store.UpdateState(ctx, key, store.StateRunning); err != nil {
		return err
	}
	exec.State = store.StateRunning

	s.arm(key, exec, trig, callable)
	s.publish("task.scheduled", key)
	return nil
}

// deleteAtCap removes a record that has already reached its execution cap
// before it could be (re-)armed. This covers the crash window in
// runnable.Fire between persisting the capping fire's execCount and
// deleting the record: on restart the record survives at cap, and
// ScheduleTask/ResumeTask must finish that deletion rather than arm one
// more fire.
func (s *Scheduler) deleteAtCap(ctx context.Context, key string) error {
	if err := s.store.DeleteExec(ctx, key); err != nil {
		return err
	}
	s.publish("task.capped", key)
	return nil
}

// resolve looks up the task's handler and compiles its cron expression,
// without mutating any state.
func (s *Scheduler) resolve(ctx context.Context, exec store.ExecDetail) (handler.Callable, trigger.Trigger, error) {
	th, err := s.store.GetHandler(ctx, exec.TaskHandlerKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, exec.TaskHandlerKey)
	}

	callable, err := s.handlers.Resolve(th.BeanClassName, th.BeanName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrHandlerNotFound, th.BeanClassName, th.BeanName)
	}

	trig, err := s.parse(exec.CronExpr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}

	return callable, trig, nil
}

// arm replaces any existing live timer for key and starts a fresh one.
func (s *Scheduler) arm(key string, exec store.ExecDetail, trig trigger.Trigger, callable handler.Callable) {
	s.stopTimer(key)

	taskCtx, cancel := context.WithCancel(s.sup.Context())

	s.mu.Lock()
	s.timers[key] = cancel
	s.mu.Unlock()

	prev := exec.LastExecTime
	if prev.IsZero() {
		prev = time.Now()
	}

	s.sup.Go0(liveTimerName(key), func(context.Context) {
		s.runLiveTimer(taskCtx, key, prev, trig, callable)
	})
}

func liveTimerName(key string) string { return "scheduler.live_timer." + key }

// stopTimer cancels and forgets key's live timer, if any. It is safe to call
// whether or not a timer is currently armed.
func (s *Scheduler) stopTimer(key string) {
	s.mu.Lock()
	cancel, ok := s.timers[key]
	if ok {
		delete(s.timers, key)
	}
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// hasTimer reports whether key currently has an armed live timer.
func (s *Scheduler) hasTimer(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// PauseTask transitions a task to PAUSED and tears down its live timer.
// The store is updated before the timer is cancelled: a fire already in
// flight re-checks state in its own first step and will abort even if the
// goroutine teardown hasn't completed yet.
func (s *Scheduler) PauseTask(ctx context.Context, key string) error {
	if err := s.store.UpdateState(ctx, key, store.StatePaused); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil // idempotent: nothing to pause
		}
		return err
	}
	s.stopTimer(key)
	s.publish("task.paused", key)
	return nil
}

// ResumeTask starts a job that is INIT, PAUSED, BLOCKED, or RUNNING (INIT is
// needed so Recovery can drive every non-terminal record through this one
// entry point). ERROR is terminal: only DeleteTask removes it, so Resume on
// an errored task fails silently and still reports success. Resuming an
// already-running task is also a no-op.
func (s *Scheduler) ResumeTask(ctx context.Context, key string) error {
	exec, err := s.store.GetExec(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return err
	}
	switch exec.State {
	case store.StateInit, store.StatePaused, store.StateBlocked, store.StateRunning:
	default:
		return nil // ERROR (or any other terminal state) is a silent no-op.
	}
	if exec.State == store.StateRunning && s.hasTimer(key) {
		return nil
	}
	if exec.AtCap() {
		return s.deleteAtCap(ctx, key)
	}
	if err := s.store.UpdateState(ctx, key, store.StateRunning); err != nil {
		return err
	}
	exec.State = store.StateRunning
	callable, trig, err := s.resolve(ctx, exec)
	if err != nil {
		_ = s.store.UpdateStateToError(ctx, key, err.Error())
		return err
	}
	s.arm(key, exec, trig, callable)
	s.publish("task.resumed", key)
	return nil
}

// DeleteTask tears down the live timer (if any) and removes the durable
// record. Deleting an unknown key is idempotent success.
func (s *Scheduler) DeleteTask(ctx context.Context, key string) error {
	s.stopTimer(key)
	if err := s.store.DeleteExec(ctx, key); err != nil {
		return err
	}
	s.publish("task.deleted", key)
	return nil
}

// Shutdown cancels every live timer and waits for the thread pool to drain.
func (s *Scheduler) Shutdown(ctx context.Context, awaitTermination time.Duration) error {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.timers))
	for _, c := range s.timers {
		cancels = append(cancels, c)
	}
	s.timers = map[string]context.CancelFunc{}
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	return s.pool.Shutdown(ctx, awaitTermination)
}

// SweepInvalidTasks scans every non-ERROR ExecDetail and marks ERROR those
// whose handler no longer resolves (e.g. after a deploy drops a bean) or
// whose cron expression no longer parses; in both cases the recorded error
// message is ErrHandlerNotFound's. Records are kept, not removed. It
// collects the offending keys in one pass over the listing before mutating
// any state, so it never mutates the slice it is iterating.
func (s *Scheduler) SweepInvalidTasks(ctx context.Context) error {
	execs, err := s.store.ListExecs(ctx)
	if err != nil {
		return err
	}

	var invalid []string
	for _, exec := range execs {
		if exec.State == store.StateError {
			continue
		}
		if _, _, err := s.resolve(ctx, exec); err != nil {
			invalid = append(invalid, exec.Key)
		}
	}

	for _, key := range invalid {
		s.stopTimer(key)
		_ = s.store.UpdateStateToError(ctx, key, ErrHandlerNotFound.Error())
		if !s.log.IsZero() {
			s.log.Warn("moved task with unresolvable handler to error", logx.String("key", key))
		}
	}
	return nil
}
