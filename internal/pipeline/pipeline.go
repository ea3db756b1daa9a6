package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/barcode-mcp/internal/config"
	"github.com/ironsheep/barcode-mcp/internal/detection"
	"github.com/ironsheep/barcode-mcp/internal/imaging"
	"github.com/ironsheep/barcode-mcp/internal/policy"
	"github.com/ironsheep/barcode-mcp/internal/region"
	"github.com/ironsheep/barcode-mcp/internal/sequencer"
)

// ErrAborted wraps the cause of a cycle that stopped before dispatch.
var ErrAborted = errors.New("detection cycle aborted")

// Stage is a step in a cycle's lifecycle.
type Stage string

const (
	StageQueued         Stage = "queued"
	StageResolving      Stage = "resolving-region"
	StageAwaitingRaster Stage = "awaiting-raster"
	StageDecoding       Stage = "decoding"
	StageFiltering      Stage = "filtering"
	StageDispatching    Stage = "dispatching"
	StageDone           Stage = "done"
)

// Resolver turns a trigger into a plan. *region.Resolver implements it.
type Resolver interface {
	Resolve(t region.Trigger, p region.Policy) (*region.Plan, error)
}

// Dispatcher delivers planned payloads. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Open(ctx context.Context, urls []string, p policy.OpenPolicy) (int, error)
	Copy(ctx context.Context, items []string, p policy.CopyPolicy) error
}

// Badge receives progress transitions. *badge.Machine implements it.
type Badge interface {
	Busy()
	Intermediate(n int)
	Complete(n int)
}

// Queue runs tasks one at a time. *sequencer.Sequencer implements it.
type Queue interface {
	Submit(task sequencer.Task) (<-chan struct{}, error)
	Pending() int
	Running() bool
}

// Deps are the collaborators of a Pipeline. All are required except Logger.
type Deps struct {
	Options    config.Provider
	Resolver   Resolver
	Decoder    detection.Decoder
	Dispatcher Dispatcher
	Badge      Badge
	Queue      Queue
	Logger     *slog.Logger
}

// Cycle is the state owned by one detection run. It is created when the
// trigger arrives and touched only by the task that runs it.
type Cycle struct {
	ID      string
	Trigger region.Trigger
	Plan    *region.Plan
	Stage   Stage

	logger  *slog.Logger
	created time.Time
}

func (c *Cycle) enter(s Stage) {
	c.Stage = s
	c.logger.Debug("cycle stage", "stage", string(s))
}

// Outcome reports how a cycle ended.
type Outcome struct {
	ID              string   `json:"cycle_id"`
	Stage           Stage    `json:"stage"`
	EffectiveRegion string   `json:"effective_region,omitempty"`
	Decoded         int      `json:"decoded"`
	Kept            int      `json:"kept"`
	Opened          []string `json:"opened"`
	Copied          []string `json:"copied"`
	Err             error    `json:"-"`
	Error           string   `json:"error,omitempty"`
}

// Ticket identifies a queued cycle. Done yields its Outcome once and is then
// closed.
type Ticket struct {
	ID   string
	Done <-chan Outcome
}

// Pipeline runs detection cycles in trigger order.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

// New checks deps and creates a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Options == nil:
		return nil, errors.New("pipeline: options provider is required")
	case deps.Resolver == nil:
		return nil, errors.New("pipeline: resolver is required")
	case deps.Decoder == nil:
		return nil, errors.New("pipeline: decoder is required")
	case deps.Dispatcher == nil:
		return nil, errors.New("pipeline: dispatcher is required")
	case deps.Badge == nil:
		return nil, errors.New("pipeline: badge is required")
	case deps.Queue == nil:
		return nil, errors.New("pipeline: queue is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{deps: deps, logger: logger}, nil
}

// Trigger queues one cycle for t. Every call queues a new cycle; it blocks
// while the queue is full.
func (p *Pipeline) Trigger(t region.Trigger) (Ticket, error) {
	c := &Cycle{
		ID:      uuid.NewString(),
		Trigger: t,
		Stage:   StageQueued,
		created: time.Now(),
	}
	c.logger = p.logger.With("cycle", c.ID)

	out := make(chan Outcome, 1)
	_, err := p.deps.Queue.Submit(func(ctx context.Context) {
		o := p.runSafe(ctx, c)
		out <- o
		close(out)
	})
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to queue cycle: %w", err)
	}
	c.logger.Debug("cycle queued", "pending", p.deps.Queue.Pending())
	return Ticket{ID: c.ID, Done: out}, nil
}

// Pending returns the number of cycles queued or running.
func (p *Pipeline) Pending() int {
	return p.deps.Queue.Pending()
}

// Running reports whether a cycle is executing right now.
func (p *Pipeline) Running() bool {
	return p.deps.Queue.Running()
}

// runSafe converts a panic in a collaborator into an aborted outcome so the
// ticket always resolves and the badge always completes.
func (p *Pipeline) runSafe(ctx context.Context, c *Cycle) (o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cycle panic",
				"stage", string(c.Stage),
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			p.deps.Badge.Complete(0)
			o = p.abort(c, fmt.Errorf("panic: %v", r))
		}
	}()
	return p.run(ctx, c)
}

func (p *Pipeline) run(ctx context.Context, c *Cycle) Outcome {
	p.deps.Badge.Busy()
	c.logger.Info("cycle started", "waited", time.Since(c.created))

	c.enter(StageResolving)
	opts := p.deps.Options.Snapshot()
	plan, err := p.deps.Resolver.Resolve(c.Trigger, opts.Region)
	if err != nil {
		return p.fail(c, err)
	}
	c.Plan = plan

	c.enter(StageAwaitingRaster)
	raster, err := plan.Raster.Get(ctx)
	if err != nil {
		return p.fail(c, err)
	}
	if raster == nil {
		c.logger.Info("no raster available", "effective_region", string(plan.EffectiveRegion))
		return p.finish(c, Outcome{}, 0)
	}

	c.enter(StageDecoding)
	barcodes, err := p.deps.Decoder.Decode(ctx, raster)
	if err != nil {
		return p.fail(c, fmt.Errorf("decode: %w", err))
	}
	p.deps.Badge.Intermediate(len(barcodes))
	o := Outcome{Decoded: len(barcodes)}

	c.enter(StageFiltering)
	kept := barcodes
	if plan.EffectiveRegion == region.UnderCursor {
		kept = p.underCursor(c, barcodes, raster)
	}
	o.Kept = len(kept)

	c.enter(StageDispatching)
	payloads := detection.Payloads(kept)
	opts = p.deps.Options.Snapshot()

	// Both plans are built before anything is dispatched so an invalid value
	// in either policy stops the cycle with no side effects.
	openPlan, err := policy.PlanOpen(payloads, opts.Open)
	if err != nil {
		return p.fail(c, err)
	}
	copyPlan, err := policy.PlanCopy(payloads, opts.Copy)
	if err != nil {
		return p.fail(c, err)
	}

	if len(openPlan) > 0 {
		if _, err := p.deps.Dispatcher.Open(ctx, openPlan, opts.Open); err != nil {
			return p.fail(c, err)
		}
		o.Opened = openPlan
	}
	if len(copyPlan) > 0 {
		if err := p.deps.Dispatcher.Copy(ctx, copyPlan, opts.Copy); err != nil {
			c.logger.Warn("copy dispatch failed", "error", err)
			o.Err = err
		} else {
			o.Copied = copyPlan
		}
	}

	return p.finish(c, o, distinct(o.Opened, o.Copied))
}

func (p *Pipeline) underCursor(c *Cycle, barcodes []detection.Barcode, raster *imaging.Raster) []detection.Barcode {
	query := c.Plan.QueryPoint(raster.Width, raster.Height)
	tolerance := c.Plan.Tolerance(raster.Width)
	kept := detection.FilterUnderCursor(barcodes, query, tolerance)
	c.logger.Debug("under-cursor filter",
		"query_x", query.X,
		"query_y", query.Y,
		"tolerance", tolerance,
		"decoded", len(barcodes),
		"kept", len(kept))
	return kept
}

func (p *Pipeline) finish(c *Cycle, o Outcome, completed int) Outcome {
	p.deps.Badge.Complete(completed)
	c.enter(StageDone)
	o.ID = c.ID
	o.Stage = StageDone
	if c.Plan != nil {
		o.EffectiveRegion = string(c.Plan.EffectiveRegion)
	}
	if o.Opened == nil {
		o.Opened = []string{}
	}
	if o.Copied == nil {
		o.Copied = []string{}
	}
	if o.Err != nil {
		o.Error = o.Err.Error()
	}
	c.logger.Info("cycle done",
		"decoded", o.Decoded,
		"kept", o.Kept,
		"opened", len(o.Opened),
		"copied", len(o.Copied),
		"elapsed", time.Since(c.created))
	return o
}

// fail aborts the cycle: nothing further is dispatched and the badge shows
// complete(0).
func (p *Pipeline) fail(c *Cycle, cause error) Outcome {
	p.deps.Badge.Complete(0)
	return p.abort(c, cause)
}

func (p *Pipeline) abort(c *Cycle, cause error) Outcome {
	err := fmt.Errorf("%w at %s: %w", ErrAborted, c.Stage, cause)
	level := slog.LevelWarn
	if errors.Is(cause, imaging.ErrUnreachable) {
		level = slog.LevelInfo
	}
	c.logger.Log(context.Background(), level, "cycle aborted", "stage", string(c.Stage), "error", cause)

	o := Outcome{
		ID:     c.ID,
		Stage:  c.Stage,
		Opened: []string{},
		Copied: []string{},
		Err:    err,
		Error:  err.Error(),
	}
	if c.Plan != nil {
		o.EffectiveRegion = string(c.Plan.EffectiveRegion)
	}
	return o
}

// distinct counts the payloads handed to at least one destination.
func distinct(lists ...[]string) int {
	seen := make(map[string]struct{})
	for _, l := range lists {
		for _, s := range l {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}
