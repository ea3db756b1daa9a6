package detection

import (
	"context"

	"github.com/ironsheep/barcode-mcp/internal/geometry"
	"github.com/ironsheep/barcode-mcp/internal/imaging"
)

// Barcode is one decoded code.
type Barcode struct {
	// RawValue is the decoded payload.
	RawValue string `json:"raw_value"`

	// Format names the symbology, e.g. "QR_CODE".
	Format string `json:"format,omitempty"`

	// CornerPoints is the closed outline of the code in raster pixel
	// coordinates, in decoder order.
	CornerPoints []geometry.Point `json:"corner_points"`
}

// Decoder finds barcodes in a raster. The order of the returned slice is the
// decode order used by the open and copy policies; an empty slice with a nil
// error means nothing was found.
type Decoder interface {
	Decode(ctx context.Context, raster *imaging.Raster) ([]Barcode, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, raster *imaging.Raster) ([]Barcode, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, raster *imaging.Raster) ([]Barcode, error) {
	return f(ctx, raster)
}

// FilterUnderCursor keeps the barcodes whose outline contains query after it
// is moved up to tolerance pixels toward the outline's centroid. Points on an
// outline count as contained. The input order is preserved and the input
// slice is not modified.
func FilterUnderCursor(barcodes []Barcode, query geometry.Point, tolerance float64) []Barcode {
	kept := make([]Barcode, 0, len(barcodes))
	for _, b := range barcodes {
		if geometry.Locate(b.CornerPoints, query, tolerance).Hit() {
			kept = append(kept, b)
		}
	}
	return kept
}

// Payloads returns the raw values in order.
func Payloads(barcodes []Barcode) []string {
	out := make([]string, len(barcodes))
	for i, b := range barcodes {
		out[i] = b.RawValue
	}
	return out
}
