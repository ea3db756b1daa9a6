package detection

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"reflect"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode/detector"

	"github.com/ironsheep/barcode-mcp/internal/geometry"
	"github.com/ironsheep/barcode-mcp/internal/imaging"
)

// square returns an axis-aligned square outline.
func square(x, y, size float64) []geometry.Point {
	return []geometry.Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

// renderQR draws a QR code for content onto a white canvas at (left, top).
func renderQR(t *testing.T, canvas *image.RGBA, content string, left, top, size int) {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("failed to encode qr: %v", err)
	}
	for y := 0; y < matrix.GetHeight(); y++ {
		for x := 0; x < matrix.GetWidth(); x++ {
			if matrix.Get(x, y) {
				canvas.Set(left+x, top+y, color.Black)
			}
		}
	}
}

func createWhiteCanvas(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func TestFilterUnderCursor(t *testing.T) {
	barcodes := []Barcode{
		{RawValue: "left", CornerPoints: square(0, 0, 100)},
		{RawValue: "right", CornerPoints: square(200, 0, 100)},
		{RawValue: "overlap", CornerPoints: square(50, 0, 100)},
	}

	tests := []struct {
		name      string
		query     geometry.Point
		tolerance float64
		want      []string
	}{
		{"inside one", geometry.Point{X: 250, Y: 50}, 0, []string{"right"}},
		{"inside two keeps decode order", geometry.Point{X: 75, Y: 50}, 0, []string{"left", "overlap"}},
		{"on edge", geometry.Point{X: 200, Y: 50}, 0, []string{"right"}},
		{"outside everything", geometry.Point{X: 175, Y: 500}, 0, []string{}},
		{"gap without tolerance", geometry.Point{X: 175, Y: 50}, 0, []string{}},
		{"gap with tolerance", geometry.Point{X: 175, Y: 50}, 30, []string{"right", "overlap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Payloads(FilterUnderCursor(barcodes, tt.query, tt.tolerance))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if barcodes[0].RawValue != "left" || len(barcodes) != 3 {
		t.Error("input slice was modified")
	}
}

func TestFilterUnderCursor_DegenerateOutline(t *testing.T) {
	barcodes := []Barcode{
		{RawValue: "point", CornerPoints: []geometry.Point{{X: 10, Y: 10}, {X: 10, Y: 10}}},
		{RawValue: "empty"},
	}
	got := FilterUnderCursor(barcodes, geometry.Point{X: 10, Y: 10}, 0)
	if len(got) != 1 || got[0].RawValue != "point" {
		t.Errorf("got %v, want only the point outline", Payloads(got))
	}
}

func TestPayloads(t *testing.T) {
	if got := Payloads(nil); len(got) != 0 {
		t.Errorf("nil input: got %v", got)
	}
	got := Payloads([]Barcode{{RawValue: "a"}, {RawValue: "b"}})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestQRDecoder_Decode(t *testing.T) {
	canvas := createWhiteCanvas(400, 300)
	renderQR(t, canvas, "https://a.example", 100, 50, 200)

	barcodes, err := QRDecoder{}.Decode(context.Background(), imaging.NewRaster(canvas))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(barcodes) != 1 {
		t.Fatalf("expected 1 barcode, got %d", len(barcodes))
	}

	b := barcodes[0]
	if b.RawValue != "https://a.example" {
		t.Errorf("raw value: got %q", b.RawValue)
	}
	if b.Format != "QR_CODE" {
		t.Errorf("format: got %q, want QR_CODE", b.Format)
	}
	if len(b.CornerPoints) != 4 {
		t.Fatalf("expected 4 corner points, got %d", len(b.CornerPoints))
	}

	// The outline covers the middle of the rendered code and nothing far away.
	if loc := geometry.PointInPolygon(b.CornerPoints, geometry.Point{X: 200, Y: 150}); loc != geometry.Inside {
		t.Errorf("code center: got %s, want inside", loc)
	}
	if loc := geometry.PointInPolygon(b.CornerPoints, geometry.Point{X: 20, Y: 20}); loc != geometry.Outside {
		t.Errorf("far corner: got %s, want outside", loc)
	}
}

func TestQRDecoder_OutlineCoversFinderPatterns(t *testing.T) {
	// 200px with the writer's 4-module quiet zone: 29 modules of 6px, symbol
	// drawn at x,y in [137,263) x [87,213).
	canvas := createWhiteCanvas(400, 300)
	renderQR(t, canvas, "https://a.example", 100, 50, 200)

	barcodes, err := QRDecoder{}.Decode(context.Background(), imaging.NewRaster(canvas))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(barcodes) != 1 {
		t.Fatalf("expected 1 barcode, got %d", len(barcodes))
	}
	outline := barcodes[0].CornerPoints

	clicks := []struct {
		name string
		p    geometry.Point
	}{
		{"top-left finder", geometry.Point{X: 142, Y: 92}},
		{"top-right finder", geometry.Point{X: 258, Y: 92}},
		{"bottom-left finder", geometry.Point{X: 142, Y: 208}},
		{"bottom-right module", geometry.Point{X: 258, Y: 208}},
	}
	for _, c := range clicks {
		if loc := geometry.PointInPolygon(outline, c.p); loc == geometry.Outside {
			t.Errorf("%s %v: outside outline %v", c.name, c.p, outline)
		}
	}

	// The quiet zone stays outside.
	if loc := geometry.PointInPolygon(outline, geometry.Point{X: 125, Y: 150}); loc != geometry.Outside {
		t.Errorf("quiet zone: got %s, want outside", loc)
	}
}

func TestQRDecoder_NothingFound(t *testing.T) {
	barcodes, err := QRDecoder{TryHarder: true}.Decode(context.Background(), imaging.NewRaster(createWhiteCanvas(120, 80)))
	if err != nil {
		t.Fatalf("blank raster should not be an error: %v", err)
	}
	if len(barcodes) != 0 {
		t.Errorf("expected no barcodes, got %d", len(barcodes))
	}
}

func TestQRDecoder_NilRaster(t *testing.T) {
	if _, err := (QRDecoder{}).Decode(context.Background(), nil); err == nil {
		t.Error("expected error for nil raster")
	}
}

func TestQROutline_ExpandsByFinderInset(t *testing.T) {
	// Version 1 symbol, 21 modules of 10px at the origin: finder centers sit
	// 3.5 modules in from each corner.
	bl := detector.NewFinderPattern1(35, 175, 10)
	tl := detector.NewFinderPattern1(35, 35, 10)
	tr := detector.NewFinderPattern1(175, 35, 10)

	got := qrOutline([]gozxing.ResultPoint{bl, tl, tr})
	want := []geometry.Point{{X: 0, Y: 0}, {X: 210, Y: 0}, {X: 210, Y: 210}, {X: 0, Y: 210}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i].X-want[i].X) > 1e-9 || math.Abs(got[i].Y-want[i].Y) > 1e-9 {
			t.Errorf("corner %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSymbolDimension_SnapsToVersion(t *testing.T) {
	tests := []struct {
		name       string
		spacing    float64
		moduleSize float64
		want       int
	}{
		{"version 1", 140, 10, 21},
		{"version 2 noisy", 18 * 4.1, 4, 25},
		{"below smallest", 20, 10, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := detector.NewFinderPattern1(0, 0, tt.moduleSize)
			tr := detector.NewFinderPattern1(tt.spacing, 0, tt.moduleSize)
			bl := detector.NewFinderPattern1(0, tt.spacing, tt.moduleSize)
			got := symbolDimension([]gozxing.ResultPoint{bl, tl, tr},
				geometry.Point{X: 0, Y: 0}, geometry.Point{X: tt.spacing, Y: 0}, geometry.Point{X: 0, Y: tt.spacing})
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

// Plain result points carry no module size; the finder centers are used as is.
func TestQROutline(t *testing.T) {
	bl := gozxing.NewResultPoint(10, 90)
	tl := gozxing.NewResultPoint(10, 10)
	tr := gozxing.NewResultPoint(90, 10)

	got := qrOutline([]gozxing.ResultPoint{bl, tl, tr})
	want := []geometry.Point{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 90, Y: 90}, {X: 10, Y: 90}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
