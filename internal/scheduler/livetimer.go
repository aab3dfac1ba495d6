package scheduler

import (
	"context"
	"time"

	"taskscheduler/internal/handler"
	"taskscheduler/internal/runnable"
	"taskscheduler/internal/store"
	"taskscheduler/internal/trigger"
	logx "taskscheduler/pkg/logx"
)

// runLiveTimer is the per-task goroutine body: compute next fire, sleep,
// acquire a pool permit, fire, release the permit, and loop from the
// instant the fire completed, so fire times that passed while a fire
// overran are dropped rather than replayed. A permit is acquired and released
// once per fire, not held for the task's entire RUNNING lifetime: the pool
// bounds how many fires may be in flight at once, not how many live timers
// exist.
func (s *Scheduler) runLiveTimer(ctx context.Context, key string, prev time.Time, trig trigger.Trigger, callable handler.Callable) {
	for {
		next, ok := trig.Next(prev)
		if !ok {
			s.stopTimer(key)
			return
		}

		if !sleepUntil(ctx, next) {
			return
		}

		if !s.acquireWithRetry(ctx, key) {
			// Retry budget exhausted: acquireWithRetry already moved the
			// record to ERROR.
			s.stopTimer(key)
			return
		}

		r := &runnable.Runnable{
			Key:      key,
			Store:    s.store,
			Callable: callable,
			Timeout:  s.execTimeout,
			Log:      s.log,
		}
		outcome, _ := r.Fire(ctx)
		s.pool.Release()

		switch outcome {
		case runnable.OutcomeContinue:
			prev = time.Now()
			continue
		case runnable.OutcomeCapped:
			s.publish("task.capped", key)
		case runnable.OutcomeErrored:
			s.publish("task.errored", key)
		}
		s.stopTimer(key)
		return
	}
}

// sleepUntil blocks until t or ctx cancellation, returning false on
// cancellation.
func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// acquireWithRetry implements the rejection error policy from the error
// taxonomy: the first rejection moves the record to BLOCKED; it is then
// retried acquireRetries times with exponentially growing backoff starting
// at acquireInitialBackoff (approximately 1s, 2s, 4s, 8s, 16s); a permit
// acquired during retry moves the record back to RUNNING; exhausting the
// budget moves it to ERROR.
func (s *Scheduler) acquireWithRetry(ctx context.Context, key string) bool {
	if err := s.pool.TryAcquire(); err == nil {
		return true
	}

	_ = s.store.UpdateState(ctx, key, store.StateBlocked)
	s.publish("task.blocked", key)
	if !s.log.IsZero() {
		s.log.Warn("thread pool saturated, retrying", logx.String("key", key))
	}

	backoff := s.retryBackoff
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}

		if err := s.pool.TryAcquire(); err == nil {
			_ = s.store.UpdateState(ctx, key, store.StateRunning)
			return true
		}
		backoff *= 2
	}

	_ = s.store.UpdateStateToError(ctx, key, "rejected: thread pool saturated after retry budget exhausted")
	if !s.log.IsZero() {
		s.log.Error("giving up on saturated pool", logx.String("key", key))
	}
	return false
}
