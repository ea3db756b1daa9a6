package sequencer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wait(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestSequencer_FIFO(t *testing.T) {
	s := New(8, nil)
	defer s.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	var last <-chan struct{}
	for i := 0; i < 20; i++ {
		n := i
		done, err := s.Submit(func(context.Context) {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		})
		require.NoError(t, err)
		last = done
	}
	wait(t, last)

	require.Len(t, order, 20)
	for i, n := range order {
		assert.Equal(t, i, n)
	}
}

func TestSequencer_NoOverlap(t *testing.T) {
	s := New(4, nil)
	defer s.Close()

	var active, maxActive atomic.Int32
	var dones []<-chan struct{}
	for i := 0; i < 6; i++ {
		done, err := s.Submit(func(context.Context) {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			time.Sleep(3 * time.Millisecond)
			active.Add(-1)
		})
		require.NoError(t, err)
		dones = append(dones, done)
	}
	for _, d := range dones {
		wait(t, d)
	}
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestSequencer_SlowThenFast(t *testing.T) {
	s := New(4, nil)
	defer s.Close()

	var slowFinished, fastStartedAfter atomic.Bool
	release := make(chan struct{})

	_, err := s.Submit(func(context.Context) {
		<-release
		time.Sleep(5 * time.Millisecond)
		slowFinished.Store(true)
	})
	require.NoError(t, err)

	fast, err := s.Submit(func(context.Context) {
		fastStartedAfter.Store(slowFinished.Load())
	})
	require.NoError(t, err)

	select {
	case <-fast:
		t.Fatal("second task ran while the first was blocked")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	wait(t, fast)
	assert.True(t, fastStartedAfter.Load(), "second task must start after the first finished")
}

func TestSequencer_PanicRecovered(t *testing.T) {
	s := New(4, nil)
	defer s.Close()

	boom, err := s.Submit(func(context.Context) { panic("boom") })
	require.NoError(t, err)

	var ran atomic.Bool
	next, err := s.Submit(func(context.Context) { ran.Store(true) })
	require.NoError(t, err)

	wait(t, boom)
	wait(t, next)
	assert.True(t, ran.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestSequencer_CloseDrains(t *testing.T) {
	s := New(16, nil)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		_, err := s.Submit(func(context.Context) {
			time.Sleep(time.Millisecond)
			count.Add(1)
		})
		require.NoError(t, err)
	}
	s.Close()

	assert.Equal(t, int32(10), count.Load())
	_, err := s.Submit(func(context.Context) {})
	assert.ErrorIs(t, err, ErrClosed)

	s.Close() // idempotent
}

func TestSequencer_AbortCancelsContext(t *testing.T) {
	s := New(4, nil)

	started := make(chan struct{})
	var sawCancel atomic.Bool
	_, err := s.Submit(func(ctx context.Context) {
		close(started)
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
		case <-time.After(2 * time.Second):
		}
	})
	require.NoError(t, err)

	<-started
	s.Abort()
	assert.True(t, sawCancel.Load())
}

func TestSequencer_Pending(t *testing.T) {
	s := New(4, nil)
	defer s.Close()

	release := make(chan struct{})
	_, err := s.Submit(func(context.Context) { <-release })
	require.NoError(t, err)
	last, err := s.Submit(func(context.Context) {})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Pending())
	close(release)
	wait(t, last)
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestSequencer_NilTask(t *testing.T) {
	s := New(1, nil)
	defer s.Close()
	_, err := s.Submit(nil)
	assert.Error(t, err)
}
