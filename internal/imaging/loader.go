package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrUnreachable is returned when an image source cannot be fetched or
// captured. Callers abort the detection cycle on it without retrying.
var ErrUnreachable = errors.New("image source unreachable")

// maxImageBytes bounds how much of a response body is read.
const maxImageBytes = 64 << 20

// Raster is a decoded pixel buffer. Only its dimensions are interpreted by the
// detection pipeline; the pixels are handed to the decoder unchanged.
//
// A Raster is read-only once returned from a Loader: cached rasters are shared
// between cycles.
type Raster struct {
	Width  int
	Height int
	Pixels *image.RGBA
}

// NewRaster wraps any image as a Raster, converting it to RGBA with its
// origin at (0, 0).
func NewRaster(img image.Image) *Raster {
	rgba := clone.AsRGBA(img)
	rgba.Rect = rgba.Rect.Sub(rgba.Rect.Min)
	b := rgba.Bounds()
	return &Raster{Width: b.Dx(), Height: b.Dy(), Pixels: rgba}
}

// ViewportCapturer captures the currently visible viewport as encoded image
// bytes (PNG in practice).
type ViewportCapturer interface {
	CaptureVisibleViewport(ctx context.Context) ([]byte, error)
}

// Rasterizer converts a vector image to pixels. Width and height of zero ask
// for the image's intrinsic size.
type Rasterizer interface {
	Rasterize(data []byte, width, height int) (image.Image, error)
}

// Loader produces Rasters from URLs and viewport captures.
//
// Supported URL forms:
//   - http:// and https:// (fetched with the Loader's HTTP client)
//   - data: URLs, base64 or percent-encoded (results are cached when a cache
//     is configured, since the content is immutable)
//   - file:// URLs and bare filesystem paths, only when enabled with
//     WithLocalFiles; trigger URLs come from the page, so they are off by
//     default
//
// SVG sources are delegated to the configured Rasterizer before decoding.
// Loader is safe for concurrent use.
type Loader struct {
	client     *http.Client
	capturer   ViewportCapturer
	rasterizer Rasterizer
	cache      *RasterCache
	localFiles bool
	logger     *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) { l.client = c }
}

// WithCapturer sets the viewport capturer.
func WithCapturer(c ViewportCapturer) LoaderOption {
	return func(l *Loader) { l.capturer = c }
}

// WithRasterizer sets the vector rasterizer used for SVG sources.
func WithRasterizer(r Rasterizer) LoaderOption {
	return func(l *Loader) { l.rasterizer = r }
}

// WithCache sets the cache for data: URL rasters.
func WithCache(c *RasterCache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

// WithLocalFiles allows file:// URLs and bare paths to be read from disk.
func WithLocalFiles(allow bool) LoaderOption {
	return func(l *Loader) { l.localFiles = allow }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a Loader. Without options it uses http.DefaultClient, the
// oksvg rasterizer, no cache, no viewport capturer, and refuses local files.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		client:     http.DefaultClient,
		rasterizer: SVGRasterizer{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CaptureViewport captures the visible viewport and decodes it at its native
// size.
func (l *Loader) CaptureViewport(ctx context.Context) (*Raster, error) {
	if l.capturer == nil {
		return nil, fmt.Errorf("%w: no viewport capturer configured", ErrUnreachable)
	}
	data, err := l.capturer.CaptureVisibleViewport(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: capture viewport: %v", ErrUnreachable, err)
	}
	raster, err := l.decode(data, "image/png", 0, 0)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("viewport captured", "width", raster.Width, "height", raster.Height)
	return raster, nil
}

// FetchAndDecode loads the image at rawURL and decodes it into a Raster.
//
// Parameters:
//   - rawURL: http(s), data:, file: URL or a bare filesystem path.
//   - width, height: optional target size. When both are positive the decoded
//     image is resized to exactly width×height; otherwise the intrinsic size
//     is kept.
//
// Returns an error wrapping ErrUnreachable when the source cannot be read, and
// a decode error when the bytes are not a supported image.
func (l *Loader) FetchAndDecode(ctx context.Context, rawURL string, width, height int) (*Raster, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", ErrUnreachable, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "data":
		return l.fetchDataURL(rawURL, width, height)
	case "http", "https":
		data, mediaType, err := l.fetchHTTP(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return l.decode(data, mediaType, width, height)
	case "file":
		return l.fetchFile(u.Path, width, height)
	case "":
		return l.fetchFile(rawURL, width, height)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrUnreachable, u.Scheme)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: failed to request the image: %s returned %d", ErrUnreachable, rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return data, mediaType, nil
}

func (l *Loader) fetchFile(path string, width, height int) (*Raster, error) {
	if !l.localFiles {
		l.logger.Warn("local file source refused", "path", path)
		return nil, fmt.Errorf("%w: local file sources are disabled", ErrUnreachable)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image: %v", ErrUnreachable, err)
	}
	return l.decode(data, mime.TypeByExtension(fileExt(path)), width, height)
}

func (l *Loader) fetchDataURL(rawURL string, width, height int) (*Raster, error) {
	key := cacheKey(rawURL, width, height)
	if l.cache != nil {
		if r, ok := l.cache.Get(key); ok {
			l.logger.Debug("data url cache hit", "width", r.Width, "height", r.Height)
			return r, nil
		}
	}

	data, mediaType, err := ParseDataURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	r, err := l.decode(data, mediaType, width, height)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.cache.Add(key, r)
	}
	return r, nil
}

// decode turns encoded bytes into a Raster, delegating SVG to the rasterizer.
func (l *Loader) decode(data []byte, mediaType string, width, height int) (*Raster, error) {
	var img image.Image
	if isSVG(mediaType, data) {
		if l.rasterizer == nil {
			return nil, errors.New("svg source but no rasterizer configured")
		}
		out, err := l.rasterizer.Rasterize(data, width, height)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize svg: %w", err)
		}
		img = out
	} else {
		out, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		img = out
	}

	if width > 0 && height > 0 {
		b := img.Bounds()
		if b.Dx() != width || b.Dy() != height {
			img = imaging.Resize(img, width, height, imaging.Linear)
		}
	}

	return NewRaster(img), nil
}

// ParseDataURL decodes a data: URL into its payload bytes and media type.
// Both base64 and percent-encoded payloads are accepted.
func ParseDataURL(rawURL string) ([]byte, string, error) {
	rest, ok := cutPrefixFold(rawURL, "data:")
	if !ok {
		return nil, "", errors.New("not a data url")
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", errors.New("malformed data url: missing comma")
	}

	isBase64 := false
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		isBase64 = true
		meta = meta[:len(meta)-len(";base64")]
	}
	mediaType := "text/plain"
	if meta != "" {
		if mt, _, err := mime.ParseMediaType(meta); err == nil {
			mediaType = mt
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, "", fmt.Errorf("malformed base64 payload: %w", err)
			}
		}
		return data, mediaType, nil
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("malformed percent-encoded payload: %w", err)
	}
	return []byte(unescaped), mediaType, nil
}

func isSVG(mediaType string, data []byte) bool {
	if strings.HasPrefix(mediaType, "image/svg") {
		return true
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))
	if !bytes.HasPrefix(head, []byte("<")) {
		return false
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func fileExt(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		return strings.ToLower(path[i:])
	}
	return ""
}
