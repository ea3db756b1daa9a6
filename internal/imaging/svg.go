package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Intrinsic size used when an SVG declares neither a view box nor a size,
// matching the HTML default replaced-element size.
const (
	defaultSVGWidth  = 300
	defaultSVGHeight = 150
)

// SVGRasterizer renders SVG documents with oksvg/rasterx onto an opaque white
// background. Transparent pixels would otherwise read as black to a barcode
// decoder.
type SVGRasterizer struct{}

// Rasterize renders data at width×height, or at the document's view box size
// when either dimension is not positive.
func (SVGRasterizer) Rasterize(data []byte, width, height int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	if width <= 0 || height <= 0 {
		width = int(icon.ViewBox.W + 0.5)
		height = int(icon.ViewBox.H + 0.5)
		if width <= 0 || height <= 0 {
			width, height = defaultSVGWidth, defaultSVGHeight
		}
	}

	icon.SetTarget(0, 0, float64(width), float64(height))

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), image.White, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)

	return rgba, nil
}
