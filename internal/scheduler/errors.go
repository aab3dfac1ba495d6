package scheduler

import (
	"errors"

	"taskscheduler/internal/pool"
)

var (
	// ErrNotFound is returned when an operation names a key with no
	// ExecDetail record in the store.
	ErrNotFound = errors.New("scheduler: task not found")
	// ErrInvalidCron is returned when a task's stored cron expression can no
	// longer be parsed.
	ErrInvalidCron = errors.New("scheduler: invalid cron expression")
	// ErrHandlerNotFound is returned when a task's TaskHandler does not
	// resolve to a registered callable.
	ErrHandlerNotFound = errors.New("scheduler: handler not registered")
	// ErrRejected is the pool's rejection sentinel, aliased from pool so
	// callers can use one sentinel regardless of which layer rejected the
	// request. The scheduler's own operations do not return it: a live timer
	// that exhausts its retry budget records ERROR state instead.
	ErrRejected = pool.ErrRejected
)
