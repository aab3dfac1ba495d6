// Package handler resolves a persisted (beanClassName, beanName) pair back
// to an invokable callable in the reconstituted host process.
//
// The registry is the only bridge between durable string identifiers and
// live callables. It accepts registrations at startup and refuses mutation
// thereafter.
package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Callable is a zero-argument, context-aware unit of work.
type Callable func(ctx context.Context) error

var ErrNotFound = errors.New("handler: not found")

type entry struct {
	beanName string
	fn       Callable
}

// Registry maps a class name to one or more named callables.
//
// Resolution strategy (Resolve): look up by type first; if the type has
// exactly one registered bean, return it; if it has more than one, narrow
// by beanName; if the narrowed lookup still fails, return ErrNotFound.
type Registry struct {
	mu      sync.RWMutex
	byClass map[string][]entry
	sealed  bool
}

func New() *Registry {
	return &Registry{byClass: map[string][]entry{}}
}

// RegisterNamed registers a callable as (className, beanName). Panics if
// called after Seal.
func (r *Registry) RegisterNamed(className, beanName string, fn Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic("handler: cannot register after Seal")
	}
	if fn == nil {
		panic("handler: fn must not be nil")
	}
	r.byClass[className] = append(r.byClass[className], entry{beanName: beanName, fn: fn})
}

// RegisterType registers a callable under a class name with no distinguishing
// bean name. Equivalent to RegisterNamed(className, "", fn).
func (r *Registry) RegisterType(className string, fn Callable) {
	r.RegisterNamed(className, "", fn)
}

// Seal prevents further registration. Resolve may be called before or after
// Seal; callers that want a startup guarantee that the registry is complete
// should call Seal once discovery has finished.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Resolve implements the fallback chain from the component contract:
// look up by type first; if ambiguous, narrow by name; NotFound otherwise.
func (r *Registry) Resolve(beanClassName, beanName string) (Callable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, ok := r.byClass[beanClassName]
	if !ok || len(entries) == 0 {
		return nil, fmt.Errorf("%w: class %q", ErrNotFound, beanClassName)
	}
	if len(entries) == 1 {
		return entries[0].fn, nil
	}
	for _, e := range entries {
		if e.beanName == beanName {
			return e.fn, nil
		}
	}
	return nil, fmt.Errorf("%w: class %q has no bean named %q", ErrNotFound, beanClassName, beanName)
}

// Names returns every registered className, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byClass))
	for name := range r.byClass {
		out = append(out, name)
	}
	return out
}
