package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/vova616/screenshot"
)

// ScreenCapturer captures the primary screen as the visible viewport. It is
// the local stand-in for a browser's visible-tab capture when the host runs on
// the same desktop as the page. The grab covers the whole screen, so clients
// that can capture their own viewport should send it with the trigger instead.
type ScreenCapturer struct{}

// CaptureVisibleViewport grabs the screen and returns it PNG-encoded.
func (ScreenCapturer) CaptureVisibleViewport(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureScreen()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	return buf.Bytes(), nil
}
