// Package trigger wraps github.com/robfig/cron/v3 behind a pure,
// side-effect-free next-fire-time function.
package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger yields the next fire instant given a reference instant.
//
// Next must be deterministic: the same (prev) input always yields the same
// output for the lifetime of the Trigger. ok=false means "never again".
type Trigger interface {
	Next(prev time.Time) (next time.Time, ok bool)
	Spec() string
}

// InvalidCron is returned by Parse when the cron string cannot be parsed.
type InvalidCron struct {
	Expr string
	Err  error
}

func (e *InvalidCron) Error() string {
	return fmt.Sprintf("invalid cron expression %q: %v", e.Expr, e.Err)
}

func (e *InvalidCron) Unwrap() error { return e.Err }

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type cronTrigger struct {
	expr     string
	schedule cron.Schedule
}

// Parse builds a Trigger from a cron expression. Supports the standard
// 5-field form, the optional leading seconds field, and descriptors like
// "@every 5m", "@hourly", "@daily".
func Parse(expr string) (Trigger, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, &InvalidCron{Expr: expr, Err: err}
	}
	return &cronTrigger{expr: expr, schedule: sched}, nil
}

func (t *cronTrigger) Next(prev time.Time) (time.Time, bool) {
	next := t.schedule.Next(prev)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

func (t *cronTrigger) Spec() string { return t.expr }
