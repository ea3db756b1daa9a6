// Package sequencer runs tasks one at a time in submission order.
//
// A Sequencer owns a single worker goroutine draining a FIFO channel. A task
// does not start until the previous one has returned, so state that only
// tasks touch needs no further locking. A panicking task is recovered and
// logged and the next task runs normally.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// DefaultDepth is the queue capacity used when New is given a non-positive
// depth.
const DefaultDepth = 64

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("sequencer closed")

// Task is one unit of work. The context is canceled only when the sequencer
// is closed with Abort.
type Task func(ctx context.Context)

type job struct {
	task Task
	done chan struct{}
}

// Sequencer is a single-worker FIFO queue.
type Sequencer struct {
	logger *slog.Logger
	jobs   chan job
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	pending atomic.Int64
	running atomic.Bool
}

// New starts a Sequencer with room for depth queued tasks. Submit blocks when
// the queue is full.
func New(depth int, logger *slog.Logger) *Sequencer {
	if depth <= 0 {
		depth = DefaultDepth
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sequencer{
		logger: logger,
		jobs:   make(chan job, depth),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go s.loop()
	return s
}

// Submit appends task to the queue. The returned channel is closed when the
// task has returned (or panicked).
func (s *Sequencer) Submit(task Task) (<-chan struct{}, error) {
	if task == nil {
		return nil, errors.New("nil task")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	j := job{task: task, done: make(chan struct{})}
	s.pending.Add(1)
	s.jobs <- j
	return j.done, nil
}

// Pending returns the number of tasks queued or running.
func (s *Sequencer) Pending() int {
	return int(s.pending.Load())
}

// Running reports whether a task is executing right now.
func (s *Sequencer) Running() bool {
	return s.running.Load()
}

// Close stops intake and waits for every queued task to finish.
func (s *Sequencer) Close() {
	s.shutdown()
	<-s.done
	s.cancel()
}

// Abort stops intake, cancels the context seen by tasks, and waits for the
// worker to drain. Tasks still queued run with a canceled context.
func (s *Sequencer) Abort() {
	s.cancel()
	s.shutdown()
	<-s.done
}

func (s *Sequencer) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
}

func (s *Sequencer) loop() {
	defer close(s.done)
	for j := range s.jobs {
		s.run(j)
	}
}

func (s *Sequencer) run(j job) {
	s.running.Store(true)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panic",
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
		s.running.Store(false)
		s.pending.Add(-1)
		close(j.done)
	}()
	j.task(s.ctx)
}
