package region

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/ironsheep/barcode-mcp/internal/geometry"
	"github.com/ironsheep/barcode-mcp/internal/imaging"
	"github.com/ironsheep/barcode-mcp/internal/policy"
)

// ErrInvalidTrigger is returned when a trigger carries coordinates or
// dimensions that cannot be normalized.
var ErrInvalidTrigger = errors.New("invalid detection trigger")

// Strategy selects which rectangle of the page is analyzed.
type Strategy string

const (
	DOMElement  Strategy = "dom-element"
	WholePage   Strategy = "whole-page"
	UnderCursor Strategy = "under-cursor"
)

// Validate returns policy.ErrInvalidPolicy for values outside the closed set.
func (s Strategy) Validate() error {
	switch s {
	case DOMElement, WholePage, UnderCursor:
		return nil
	default:
		return fmt.Errorf("%w: detect region %q", policy.ErrInvalidPolicy, string(s))
	}
}

// Policy is the user's region configuration.
type Policy struct {
	DetectRegion          Strategy `json:"detect_region"`
	FallbackToUnderCursor bool     `json:"fallback_to_under_cursor"`
	ToleranceCSSPixels    float64  `json:"tolerance_css_pixels"`
}

// Validate checks the strategy and tolerance.
func (p Policy) Validate() error {
	if err := p.DetectRegion.Validate(); err != nil {
		return err
	}
	if p.ToleranceCSSPixels < 0 || math.IsNaN(p.ToleranceCSSPixels) || math.IsInf(p.ToleranceCSSPixels, 0) {
		return fmt.Errorf("%w: tolerance %v", policy.ErrInvalidPolicy, p.ToleranceCSSPixels)
	}
	return nil
}

// Trigger is one click. X and Y are relative to the reference rectangle whose
// top-left corner sits at (RefLeft, RefTop) in the viewport. When the click
// landed on no element the reference rectangle is the viewport itself.
//
// ViewportCapture is an optional data: URL holding the client's capture of
// its visible viewport. When present it is the whole-page and under-cursor
// raster; otherwise the host's own capturer is used.
type Trigger struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	RefWidth        float64 `json:"ref_width"`
	RefHeight       float64 `json:"ref_height"`
	RefLeft         float64 `json:"ref_left"`
	RefTop          float64 `json:"ref_top"`
	ViewportWidth   float64 `json:"viewport_width"`
	ViewportHeight  float64 `json:"viewport_height"`
	SourceImageURL  string  `json:"image_url,omitempty"`
	ViewportCapture string  `json:"viewport_capture,omitempty"`
}

// HasImage reports whether the trigger carries an image the host can read.
// blob: URLs belong to the page and cannot be fetched from here.
func (t Trigger) HasImage() bool {
	if t.SourceImageURL == "" {
		return false
	}
	if u, err := url.Parse(t.SourceImageURL); err == nil && strings.EqualFold(u.Scheme, "blob") {
		return false
	}
	return true
}

// Plan is the resolved decision for one cycle.
//
// XRatio, YRatio and ToleranceRatio are normalized against ReferenceWidth and
// ReferenceHeight, the same rectangle the raster represents. Raster evaluates
// at most once; a nil raster with a nil error means no analysis is possible.
type Plan struct {
	XRatio          float64
	YRatio          float64
	ToleranceRatio  float64
	EffectiveRegion Strategy
	ReferenceWidth  float64
	ReferenceHeight float64
	Raster          *Lazy[*imaging.Raster]
}

// QueryPoint scales the click ratios to a raster of the given size.
func (p *Plan) QueryPoint(width, height int) geometry.Point {
	return geometry.Point{X: p.XRatio * float64(width), Y: p.YRatio * float64(height)}
}

// Tolerance scales the tolerance ratio to a raster of the given width.
func (p *Plan) Tolerance(width int) float64 {
	return p.ToleranceRatio * float64(width)
}

// Sources produces rasters for a plan. *imaging.Loader implements it.
type Sources interface {
	CaptureViewport(ctx context.Context) (*imaging.Raster, error)
	FetchAndDecode(ctx context.Context, rawURL string, width, height int) (*imaging.Raster, error)
}

// Resolver turns triggers into plans. It performs no I/O itself; raster
// acquisition is deferred into the plan.
type Resolver struct {
	sources Sources
	logger  *slog.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(sources Sources, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{sources: sources, logger: logger}
}

// Resolve chooses the effective region, the reference rectangle and the raster
// supplier together:
//
//  1. whole-page: capture the viewport, reference is the viewport.
//  2. no image, dom-element, fallback on: under-cursor over a viewport capture.
//  3. no image otherwise: nothing to analyze, region unchanged.
//  4. image: region unchanged; reference is the element box and the image is
//     decoded at its own size, so the click maps into the image the same way
//     for dom-element and under-cursor.
func (r *Resolver) Resolve(t Trigger, p Policy) (*Plan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !finite(t.X, t.Y, t.RefLeft, t.RefTop) {
		return nil, fmt.Errorf("%w: non-finite click position", ErrInvalidTrigger)
	}
	if t.ViewportCapture != "" && !isDataURL(t.ViewportCapture) {
		return nil, fmt.Errorf("%w: viewport capture must be a data: URL", ErrInvalidTrigger)
	}

	var (
		effective = p.DetectRegion
		viewport  = true
		supplier  func(context.Context) (*imaging.Raster, error)
	)

	switch {
	case p.DetectRegion == WholePage:
		supplier = r.capture(t)
	case !t.HasImage() && p.DetectRegion == DOMElement && p.FallbackToUnderCursor:
		effective = UnderCursor
		supplier = r.capture(t)
	case !t.HasImage():
		viewport = p.DetectRegion != DOMElement
		supplier = func(context.Context) (*imaging.Raster, error) { return nil, nil }
	default:
		viewport = false
		supplier = r.fetch(t.SourceImageURL, 0, 0)
	}

	plan := &Plan{EffectiveRegion: effective, Raster: NewLazy(supplier)}
	x, y := t.X, t.Y
	if viewport {
		w, h, err := viewportSize(t)
		if err != nil {
			return nil, err
		}
		plan.ReferenceWidth, plan.ReferenceHeight = w, h
		x, y = t.RefLeft+t.X, t.RefTop+t.Y
	} else {
		if !positive(t.RefWidth, t.RefHeight) {
			return nil, fmt.Errorf("%w: reference size %vx%v", ErrInvalidTrigger, t.RefWidth, t.RefHeight)
		}
		plan.ReferenceWidth, plan.ReferenceHeight = t.RefWidth, t.RefHeight
	}

	plan.XRatio = x / plan.ReferenceWidth
	plan.YRatio = y / plan.ReferenceHeight
	plan.ToleranceRatio = p.ToleranceCSSPixels / plan.ReferenceWidth

	r.logger.Debug("region resolved",
		"detect_region", string(p.DetectRegion),
		"effective_region", string(effective),
		"reference_width", plan.ReferenceWidth,
		"reference_height", plan.ReferenceHeight,
		"x_ratio", plan.XRatio,
		"y_ratio", plan.YRatio)

	return plan, nil
}

// capture prefers the client's own viewport capture, which matches the
// viewport exactly, over a host screen grab.
func (r *Resolver) capture(t Trigger) func(context.Context) (*imaging.Raster, error) {
	if t.ViewportCapture != "" {
		return r.fetch(t.ViewportCapture, 0, 0)
	}
	return r.sources.CaptureViewport
}

func (r *Resolver) fetch(rawURL string, width, height int) func(context.Context) (*imaging.Raster, error) {
	return func(ctx context.Context) (*imaging.Raster, error) {
		return r.sources.FetchAndDecode(ctx, rawURL, width, height)
	}
}

func isDataURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && strings.EqualFold(u.Scheme, "data")
}

func viewportSize(t Trigger) (float64, float64, error) {
	if !positive(t.ViewportWidth, t.ViewportHeight) {
		return 0, 0, fmt.Errorf("%w: viewport size %vx%v", ErrInvalidTrigger, t.ViewportWidth, t.ViewportHeight)
	}
	return t.ViewportWidth, t.ViewportHeight, nil
}

func positive(vs ...float64) bool {
	for _, v := range vs {
		if !(v > 0) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
