package store

import (
	"context"
	"sync"
	"time"
)

// memStore is the default, dependency-free TaskStore backend. It is what
// storage.enabled=false selects.
type memStore struct {
	mu       sync.Mutex
	handlers map[string]TaskHandler
	execs    map[string]ExecDetail
}

// NewMemory returns an in-memory Store.
func NewMemory() Store {
	return &memStore{
		handlers: map[string]TaskHandler{},
		execs:    map[string]ExecDetail{},
	}
}

func (s *memStore) Close() error { return nil }

func (s *memStore) PutHandler(ctx context.Context, h TaskHandler) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[h.Key] = h
	return nil
}

func (s *memStore) PutExec(ctx context.Context, e ExecDetail) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[e.Key] = e
	return nil
}

func (s *memStore) GetHandler(ctx context.Context, key string) (TaskHandler, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handlers[key]
	if !ok {
		return TaskHandler{}, ErrNotFound
	}
	return h, nil
}

func (s *memStore) GetExec(ctx context.Context, key string) (ExecDetail, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[key]
	if !ok {
		return ExecDetail{}, ErrNotFound
	}
	return e, nil
}

func (s *memStore) ListHandlers(ctx context.Context) ([]TaskHandler, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, h)
	}
	return out, nil
}

func (s *memStore) ListExecs(ctx context.Context) ([]ExecDetail, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExecDetail, 0, len(s.execs))
	for _, e := range s.execs {
		out = append(out, e)
	}
	return out, nil
}

func (s *memStore) UpdateExec(ctx context.Context, e ExecDetail) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.execs[e.Key]; !ok {
		return ErrNotFound
	}
	s.execs[e.Key] = e
	return nil
}

func (s *memStore) UpdateState(ctx context.Context, key string, state State) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[key]
	if !ok {
		return ErrNotFound
	}
	e.State = state
	s.execs[key] = e
	return nil
}

func (s *memStore) UpdateStateToError(ctx context.Context, key string, errMsg string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[key]
	if !ok {
		return ErrNotFound
	}
	e.State = StateError
	e.ErrorMsg = errMsg
	s.execs[key] = e
	return nil
}

func (s *memStore) IncrementExecCount(ctx context.Context, key string, lastExecTime time.Time) (ExecDetail, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[key]
	if !ok {
		return ExecDetail{}, ErrNotFound
	}
	e.ExecCount++
	e.LastExecTime = lastExecTime
	s.execs[key] = e
	return e, nil
}

func (s *memStore) DeleteExec(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.execs, key)
	return nil
}

func (s *memStore) Recover(ctx context.Context) ([]ExecDetail, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExecDetail, 0, len(s.execs))
	for _, e := range s.execs {
		if e.State == StateError {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
