package badge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recorder collects every badge shown.
type recorder struct {
	mu     sync.Mutex
	shown  []State
	delay  time.Duration
	active atomic.Int32
	maxAct atomic.Int32
}

func (r *recorder) Show(ctx context.Context, b Badge) error {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		m := r.maxAct.Load()
		if n <= m || r.maxAct.CompareAndSwap(m, n) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.shown = append(r.shown, b.State)
	r.mu.Unlock()
	return nil
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.shown...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestMachine_Lifecycle(t *testing.T) {
	rec := &recorder{}
	m := New(rec, 100*time.Millisecond, nil)
	defer m.Close()

	m.Busy()
	m.Intermediate(2)
	m.Complete(2)
	m.Sync()

	if got := m.Current(); got != (State{Kind: Complete, Count: 2}) {
		t.Errorf("after complete: got %s", got)
	}

	if !waitFor(t, time.Second, func() bool { return m.Current().Kind == Idle }) {
		t.Fatalf("badge never cleared, state %s", m.Current())
	}

	want := []State{
		{Kind: Busy},
		{Kind: Intermediate, Count: 2},
		{Kind: Complete, Count: 2},
		{Kind: Clear},
	}
	got := rec.states()
	if len(got) != len(want) {
		t.Fatalf("shown %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMachine_ClearPreempted(t *testing.T) {
	rec := &recorder{}
	m := New(rec, 60*time.Millisecond, nil)
	defer m.Close()

	m.Complete(1)
	m.Sync()
	m.Busy()
	m.Sync()

	time.Sleep(150 * time.Millisecond)

	for _, s := range rec.states() {
		if s.Kind == Clear {
			t.Fatal("clear fired after a newer transition")
		}
	}
	if got := m.Current(); got.Kind != Busy {
		t.Errorf("state: got %s, want busy", got)
	}
}

func TestMachine_NewerCompleteRestartsClear(t *testing.T) {
	rec := &recorder{}
	m := New(rec, 40*time.Millisecond, nil)
	defer m.Close()

	m.Complete(1)
	m.Complete(0)
	m.Sync()

	if !waitFor(t, time.Second, func() bool { return m.Current().Kind == Idle }) {
		t.Fatal("badge never cleared")
	}
	time.Sleep(60 * time.Millisecond)

	clears := 0
	for _, s := range rec.states() {
		if s.Kind == Clear {
			clears++
		}
	}
	if clears != 1 {
		t.Errorf("clears: got %d, want 1", clears)
	}
}

func TestMachine_Serialized(t *testing.T) {
	rec := &recorder{delay: 5 * time.Millisecond}
	m := New(rec, time.Hour, nil)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.Busy()
			m.Intermediate(n)
		}(i)
	}
	wg.Wait()
	m.Sync()

	if got := rec.maxAct.Load(); got != 1 {
		t.Errorf("concurrent Show calls: got %d, want 1", got)
	}
	if got := len(rec.states()); got != 8 {
		t.Errorf("transitions shown: got %d, want 8", got)
	}
}

func TestMachine_Close(t *testing.T) {
	rec := &recorder{}
	m := New(rec, 10*time.Millisecond, nil)
	m.Complete(3)
	m.Close()

	m.Busy()
	m.Sync()
	m.Close()

	time.Sleep(30 * time.Millisecond)
	got := rec.states()
	if len(got) != 1 || got[0] != (State{Kind: Complete, Count: 3}) {
		t.Errorf("shown after close: %v", got)
	}
}

func TestVisual(t *testing.T) {
	tests := []struct {
		state    State
		wantText string
	}{
		{State{Kind: Busy}, "…"},
		{State{Kind: Intermediate, Count: 4}, "4"},
		{State{Kind: Complete, Count: 2}, "2"},
		{State{Kind: Complete, Count: 0}, "0"},
		{State{Kind: Complete, Count: 123456}, "999+"},
		{State{Kind: Clear}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := Visual(tt.state).Text; got != tt.wantText {
				t.Errorf("text: got %q, want %q", got, tt.wantText)
			}
		})
	}

	found := Visual(State{Kind: Complete, Count: 1}).Hex()
	empty := Visual(State{Kind: Complete, Count: 0}).Hex()
	if found == empty {
		t.Errorf("complete(0) and complete(n) share color %s", found)
	}
	if len(found) != 7 || found[0] != '#' {
		t.Errorf("hex format: %q", found)
	}
}
