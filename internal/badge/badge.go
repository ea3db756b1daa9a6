package badge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultClearAfter is how long a complete badge stays visible.
const DefaultClearAfter = 2500 * time.Millisecond

// Kind enumerates badge states.
type Kind int

const (
	Idle Kind = iota
	Busy
	Intermediate
	Complete
	Clear
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case Intermediate:
		return "intermediate"
	case Complete:
		return "complete"
	case Clear:
		return "clear"
	default:
		return "unknown"
	}
}

// State is the badge state. Count is meaningful for Intermediate and Complete.
type State struct {
	Kind  Kind
	Count int
}

func (s State) String() string {
	switch s.Kind {
	case Intermediate, Complete:
		return s.Kind.String() + "(" + strconv.Itoa(s.Count) + ")"
	default:
		return s.Kind.String()
	}
}

// Badge is the visual for one state.
type Badge struct {
	State State
	Text  string
	Color colorful.Color
}

// Hex returns the badge color as #rrggbb.
func (b Badge) Hex() string {
	return b.Color.Clamped().Hex()
}

var (
	busyColor         = colorful.Hsv(0, 0, 0.55)
	intermediateColor = colorful.Hsv(40, 0.9, 0.95)
	foundColor        = colorful.Hsv(130, 0.75, 0.6)
	emptyColor        = colorful.Hsv(2, 0.8, 0.85)
)

// maxBadgeText is the widest label most badge surfaces can show.
const maxBadgeText = 4

// Visual maps a state to its badge.
func Visual(s State) Badge {
	b := Badge{State: s}
	switch s.Kind {
	case Busy:
		b.Text, b.Color = "…", busyColor
	case Intermediate:
		b.Text, b.Color = countText(s.Count), intermediateColor
	case Complete:
		b.Text = countText(s.Count)
		if s.Count > 0 {
			b.Color = foundColor
		} else {
			b.Color = emptyColor
		}
	}
	return b
}

func countText(n int) string {
	s := strconv.Itoa(n)
	if len(s) > maxBadgeText {
		return "999+"
	}
	return s
}

// Indicator displays badges. Show returns once the visual is committed.
type Indicator interface {
	Show(ctx context.Context, b Badge) error
}

// IndicatorFunc adapts a function to the Indicator interface.
type IndicatorFunc func(ctx context.Context, b Badge) error

// Show calls f.
func (f IndicatorFunc) Show(ctx context.Context, b Badge) error {
	return f(ctx, b)
}

type effect struct {
	state State
	gen   uint64 // for Clear: generation that scheduled it
	sync  chan struct{}
}

// Machine applies badge transitions strictly in order on its own goroutine.
//
// A Complete transition schedules Clear after the configured wait. Any
// transition applied before the Clear fires cancels it. Once Clear has been
// shown the machine is Idle again.
type Machine struct {
	indicator  Indicator
	clearAfter time.Duration
	logger     *slog.Logger

	effects chan effect
	done    chan struct{}

	sendMu sync.RWMutex
	closed bool

	mu    sync.Mutex
	state State
	gen   uint64
	timer *time.Timer
}

// New starts a Machine. clearAfter <= 0 uses DefaultClearAfter; a nil logger
// discards output.
func New(indicator Indicator, clearAfter time.Duration, logger *slog.Logger) *Machine {
	if clearAfter <= 0 {
		clearAfter = DefaultClearAfter
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Machine{
		indicator:  indicator,
		clearAfter: clearAfter,
		logger:     logger,
		effects:    make(chan effect, 32),
		done:       make(chan struct{}),
	}
	go m.run()
	return m
}

// Busy marks the start of a cycle.
func (m *Machine) Busy() { m.enqueue(effect{state: State{Kind: Busy}}) }

// Intermediate shows the decoded count before dispatch.
func (m *Machine) Intermediate(n int) {
	m.enqueue(effect{state: State{Kind: Intermediate, Count: n}})
}

// Complete shows the final count and schedules the clear.
func (m *Machine) Complete(n int) {
	m.enqueue(effect{state: State{Kind: Complete, Count: n}})
}

// Current returns the last committed state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Sync blocks until every transition enqueued before it has been applied.
func (m *Machine) Sync() {
	ch := make(chan struct{})
	if !m.enqueue(effect{sync: ch}) {
		return
	}
	<-ch
}

// Close stops intake, applies what is queued, and cancels a pending clear.
func (m *Machine) Close() {
	m.sendMu.Lock()
	if m.closed {
		m.sendMu.Unlock()
		<-m.done
		return
	}
	m.closed = true
	close(m.effects)
	m.sendMu.Unlock()

	<-m.done

	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.mu.Unlock()
}

func (m *Machine) enqueue(e effect) bool {
	m.sendMu.RLock()
	defer m.sendMu.RUnlock()
	if m.closed {
		return false
	}
	m.effects <- e
	return true
}

func (m *Machine) run() {
	defer close(m.done)
	for e := range m.effects {
		if e.sync != nil {
			close(e.sync)
			continue
		}
		m.apply(e)
	}
}

func (m *Machine) apply(e effect) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in badge indicator",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	m.mu.Lock()
	if e.state.Kind == Clear {
		if e.gen != m.gen {
			m.mu.Unlock()
			m.logger.Debug("badge clear preempted")
			return
		}
	} else {
		m.gen++
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
	}
	gen := m.gen
	m.mu.Unlock()

	b := Visual(e.state)
	if err := m.indicator.Show(context.Background(), b); err != nil {
		m.logger.Warn("failed to show badge", "state", e.state.String(), "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch e.state.Kind {
	case Clear:
		m.state = State{Kind: Idle}
	case Complete:
		m.state = e.state
		m.timer = time.AfterFunc(m.clearAfter, func() {
			m.enqueue(effect{state: State{Kind: Clear}, gen: gen})
		})
	default:
		m.state = e.state
	}
	m.logger.Debug("badge applied", "state", e.state.String())
}
