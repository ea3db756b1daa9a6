package detection

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/makiuchi-d/gozxing"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"

	"github.com/ironsheep/barcode-mcp/internal/geometry"
	"github.com/ironsheep/barcode-mcp/internal/imaging"
)

// QRDecoder decodes every QR code in a raster using gozxing.
//
// gozxing reports the three finder pattern centers (bottom-left, top-left,
// top-right, optionally followed by an alignment pattern). Finder centers sit
// 3.5 modules inside the symbol, so the outline is the parallelogram they
// span pushed out by 3.5 modules on every side, returned clockwise starting
// at top-left.
type QRDecoder struct {
	// TryHarder trades speed for a more exhaustive search.
	TryHarder bool
}

// Decode implements Decoder.
func (d QRDecoder) Decode(ctx context.Context, raster *imaging.Raster) ([]Barcode, error) {
	if raster == nil || raster.Pixels == nil {
		return nil, errors.New("no raster to decode")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(raster.Pixels)
	if err != nil {
		return nil, fmt.Errorf("failed to binarize raster: %w", err)
	}

	var hints map[gozxing.DecodeHintType]interface{}
	if d.TryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}

	results, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, hints)
	if err != nil {
		var notFound gozxing.NotFoundException
		if errors.As(err, &notFound) {
			return []Barcode{}, nil
		}
		return nil, fmt.Errorf("failed to decode qr codes: %w", err)
	}

	barcodes := make([]Barcode, 0, len(results))
	for _, r := range results {
		barcodes = append(barcodes, Barcode{
			RawValue:     r.GetText(),
			Format:       r.GetBarcodeFormat().String(),
			CornerPoints: qrOutline(r.GetResultPoints()),
		})
	}
	return barcodes, nil
}

// finderInset is the distance in modules from a symbol corner to the center
// of the adjacent finder pattern.
const finderInset = 3.5

// moduleSizer is implemented by gozxing's finder patterns.
type moduleSizer interface {
	GetEstimatedModuleSize() float64
}

func qrOutline(points []gozxing.ResultPoint) []geometry.Point {
	pts := make([]geometry.Point, 0, len(points))
	for _, p := range points {
		if p == nil {
			continue
		}
		pts = append(pts, geometry.Point{X: p.GetX(), Y: p.GetY()})
	}
	if len(pts) < 3 {
		return pts
	}

	bottomLeft, topLeft, topRight := pts[0], pts[1], pts[2]

	// Per-module steps along the symbol's top and left edges. Without a
	// module size estimate the finder centers are used as they are.
	var u, v geometry.Point
	if dim := symbolDimension(points[:3], topLeft, topRight, bottomLeft); dim > 7 {
		span := float64(dim - 7)
		u = geometry.Point{X: (topRight.X - topLeft.X) / span, Y: (topRight.Y - topLeft.Y) / span}
		v = geometry.Point{X: (bottomLeft.X - topLeft.X) / span, Y: (bottomLeft.Y - topLeft.Y) / span}
	}
	corner := func(p geometry.Point, su, sv float64) geometry.Point {
		return geometry.Point{
			X: p.X + finderInset*(su*u.X+sv*v.X),
			Y: p.Y + finderInset*(su*u.Y+sv*v.Y),
		}
	}

	bottomRight := geometry.Point{
		X: topRight.X + bottomLeft.X - topLeft.X,
		Y: topRight.Y + bottomLeft.Y - topLeft.Y,
	}
	return []geometry.Point{
		corner(topLeft, -1, -1),
		corner(topRight, 1, -1),
		corner(bottomRight, 1, 1),
		corner(bottomLeft, -1, 1),
	}
}

// symbolDimension estimates the symbol's size in modules from the finder
// spacing and the finder patterns' module size, snapped to a valid QR
// dimension (17 + 4*version). It returns 0 when no estimate is available.
func symbolDimension(finders []gozxing.ResultPoint, topLeft, topRight, bottomLeft geometry.Point) int {
	var sum float64
	for _, f := range finders {
		ms, ok := f.(moduleSizer)
		if !ok || !(ms.GetEstimatedModuleSize() > 0) {
			return 0
		}
		sum += ms.GetEstimatedModuleSize()
	}
	moduleSize := sum / float64(len(finders))

	across := math.Hypot(topRight.X-topLeft.X, topRight.Y-topLeft.Y)
	down := math.Hypot(bottomLeft.X-topLeft.X, bottomLeft.Y-topLeft.Y)
	dim := int(math.Round((across+down)/2/moduleSize)) + 7
	switch dim & 3 {
	case 0:
		dim++
	case 2:
		dim--
	case 3:
		dim -= 2
	}
	return min(max(dim, 21), 177)
}
