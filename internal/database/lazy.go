package database

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

const lazyInitKey = "init"

// Lazy holds a process-wide handle that is created on first use. Concurrent
// first callers share a single in-flight initialization; a failed attempt is
// retried by the next caller.
type Lazy[T any] struct {
	initialize func(ctx context.Context) (T, error)
	group      singleflight.Group
	mu         sync.RWMutex
	value      T
	ready      bool
}

// NewLazy wraps an initializer.
func NewLazy[T any](initialize func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{initialize: initialize}
}

// Get returns the cached handle, initializing it when needed. The
// initializer runs detached from the caller's cancellation so a departing
// caller does not abort the attempt the others are waiting on.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if value, ok := l.Peek(); ok {
		return value, nil
	}
	result, err, _ := l.group.Do(lazyInitKey, func() (any, error) {
		if value, ok := l.Peek(); ok {
			return value, nil
		}
		value, err := l.initialize(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.value = value
		l.ready = true
		l.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Peek returns the handle only if it was already initialized.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.ready
}
