package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/ironsheep/barcode-mcp/internal/policy"
)

// OpenItem is one payload to open.
type OpenItem struct {
	Payload string `json:"payload"`
}

// OpenRequest asks the open surface to open its items with one target mode.
type OpenRequest struct {
	Target      policy.OpenTarget `json:"target"`
	ChangeFocus bool              `json:"change_focus"`
	Items       []OpenItem        `json:"items"`
}

// CopyRequest hands a whole copy sequence to the copy surface. Pacing between
// writes and the MaxCount cap are the surface's job.
type CopyRequest struct {
	Items      []string `json:"items"`
	IntervalMs int      `json:"interval_ms"`
	MaxCount   int      `json:"max_count"`
}

// OpenSurface performs the platform open action.
type OpenSurface interface {
	Open(ctx context.Context, req OpenRequest) error
}

// CopySurface writes to the clipboard. Ensure activates the surface; the
// surface releases itself once a Copy sequence completes or fails.
type CopySurface interface {
	Ensure(ctx context.Context) error
	Copy(ctx context.Context, req CopyRequest) error
}

// OpenRequests builds the requests for an ordered list of URLs:
//   - one-tab-each, one-window-each: one request per URL
//   - one-window-all: a single request carrying every URL
func OpenRequests(urls []string, p policy.OpenPolicy) ([]OpenRequest, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	switch p.Target {
	case policy.OneTabEach, policy.OneWindowEach:
		reqs := make([]OpenRequest, len(urls))
		for i, u := range urls {
			reqs[i] = OpenRequest{
				Target:      p.Target,
				ChangeFocus: p.ChangeFocus,
				Items:       []OpenItem{{Payload: u}},
			}
		}
		return reqs, nil
	case policy.OneWindowAll:
		items := make([]OpenItem, len(urls))
		for i, u := range urls {
			items[i] = OpenItem{Payload: u}
		}
		return []OpenRequest{{Target: p.Target, ChangeFocus: p.ChangeFocus, Items: items}}, nil
	default:
		return nil, fmt.Errorf("%w: open target %q", policy.ErrInvalidPolicy, string(p.Target))
	}
}

// Dispatcher fans planned payloads out to the open and copy surfaces.
type Dispatcher struct {
	open   OpenSurface
	copy   CopySurface
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New creates a Dispatcher. Either surface may be nil, in which case that
// destination is skipped.
func New(open OpenSurface, copy CopySurface, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{open: open, copy: copy, logger: logger}
}

// Open issues the open requests for urls in order on a background goroutine
// and returns without waiting for them. An empty list does nothing. The
// returned count is the number of requests issued.
func (d *Dispatcher) Open(ctx context.Context, urls []string, p policy.OpenPolicy) (int, error) {
	reqs, err := OpenRequests(urls, p)
	if err != nil {
		return 0, err
	}
	if len(reqs) == 0 || d.open == nil {
		return 0, nil
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("open surface panic", "error", fmt.Sprint(r), "stack", string(debug.Stack()))
			}
		}()
		for _, req := range reqs {
			if err := d.open.Open(ctx, req); err != nil {
				d.logger.Warn("open request failed",
					"target", string(req.Target),
					"items", len(req.Items),
					"error", err)
			}
		}
	}()

	return len(reqs), nil
}

// Copy activates the copy surface and hands it the ordered items. It returns
// once the surface accepted (or finished) the sequence. An empty list does
// nothing and leaves the surface inactive.
func (d *Dispatcher) Copy(ctx context.Context, items []string, p policy.CopyPolicy) error {
	if len(items) == 0 || d.copy == nil {
		return nil
	}
	if err := d.copy.Ensure(ctx); err != nil {
		return fmt.Errorf("failed to activate copy surface: %w", err)
	}
	req := CopyRequest{
		Items:      append([]string(nil), items...),
		IntervalMs: p.IntervalMs,
		MaxCount:   p.MaxCount,
	}
	if err := d.copy.Copy(ctx, req); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	return nil
}

// Wait blocks until every open goroutine started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// ErrSurfaceInactive is returned by a copy surface that receives a sequence
// without being activated first.
var ErrSurfaceInactive = errors.New("copy surface not active")
