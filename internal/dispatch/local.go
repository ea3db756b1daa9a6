package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
	"golang.org/x/time/rate"
)

// BrowserOpener opens URLs in the desktop's default browser. Target mode and
// focus cannot be controlled from outside the browser, so every item becomes
// one OpenURL call.
type BrowserOpener struct {
	open   func(string) error
	logger *slog.Logger
}

// NewBrowserOpener creates an opener backed by pkg/browser. The launcher's
// own output is discarded so it cannot interleave with protocol traffic on
// stdout.
func NewBrowserOpener(logger *slog.Logger) *BrowserOpener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &BrowserOpener{open: browser.OpenURL, logger: logger}
}

// Open implements OpenSurface.
func (b *BrowserOpener) Open(ctx context.Context, req OpenRequest) error {
	var errs []error
	for _, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.open(item.Payload); err != nil {
			errs = append(errs, fmt.Errorf("open %q: %w", item.Payload, err))
			continue
		}
		b.logger.Info("opened url", "url", item.Payload, "target", string(req.Target))
	}
	return errors.Join(errs...)
}

// ClipboardSurface writes a copy sequence to the system clipboard.
//
// Ensure activates it; Copy fails unless it is active. Writes are spaced by
// IntervalMs using a token-bucket limiter, at most MaxCount items are written,
// and the surface deactivates itself when the sequence ends, successfully or
// not. Concurrent sequences are serialized.
type ClipboardSurface struct {
	write       func(string) error
	unsupported bool
	logger      *slog.Logger

	seq    sync.Mutex // held for a whole sequence
	mu     sync.Mutex
	active bool
}

// NewClipboardSurface creates a surface backed by atotto/clipboard.
func NewClipboardSurface(logger *slog.Logger) *ClipboardSurface {
	c := newClipboardSurface(clipboard.WriteAll, logger)
	c.unsupported = clipboard.Unsupported
	return c
}

func newClipboardSurface(write func(string) error, logger *slog.Logger) *ClipboardSurface {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ClipboardSurface{write: write, logger: logger}
}

// Ensure implements CopySurface.
func (c *ClipboardSurface) Ensure(ctx context.Context) error {
	if c.unsupported {
		return errors.New("no clipboard utility available")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	return nil
}

// Active reports whether the surface is waiting for a sequence.
func (c *ClipboardSurface) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Copy implements CopySurface.
func (c *ClipboardSurface) Copy(ctx context.Context, req CopyRequest) error {
	c.seq.Lock()
	defer c.seq.Unlock()

	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if !active {
		return ErrSurfaceInactive
	}
	defer c.release()

	items := req.Items
	if req.MaxCount > 0 && len(items) > req.MaxCount {
		items = items[:req.MaxCount]
	}

	limit := rate.Inf
	if req.IntervalMs > 0 {
		limit = rate.Every(time.Duration(req.IntervalMs) * time.Millisecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	for i, item := range items {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		if err := c.write(item); err != nil {
			return fmt.Errorf("write clipboard item %d: %w", i, err)
		}
		c.logger.Debug("clipboard written", "index", i, "bytes", len(item))
	}
	return nil
}

func (c *ClipboardSurface) release() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}
