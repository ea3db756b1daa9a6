package region

import (
	"context"
	"sync"
	"sync/atomic"
)

// Lazy is a compute-once cell. The first Get runs the supplier; every later
// Get returns the same value and error without running it again, even when
// the first evaluation failed.
type Lazy[T any] struct {
	once  sync.Once
	fn    func(context.Context) (T, error)
	value T
	err   error
	done  atomic.Bool
}

// NewLazy wraps fn in a compute-once cell.
func NewLazy[T any](fn func(context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{fn: fn}
}

// Get evaluates the supplier on first use. Concurrent callers block until the
// first evaluation finishes; the supplier sees the first caller's context.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.once.Do(func() {
		if l.fn != nil {
			l.value, l.err = l.fn(ctx)
		}
		l.fn = nil
		l.done.Store(true)
	})
	return l.value, l.err
}

// Evaluated reports whether the supplier has run.
func (l *Lazy[T]) Evaluated() bool {
	return l.done.Load()
}
