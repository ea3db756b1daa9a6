// Package imaging turns image sources into Rasters for barcode decoding.
//
// A Raster is the pipeline's source-agnostic pixel buffer: width, height and
// an *image.RGBA with its origin at (0, 0). Rasters come from two places:
//
//   - FetchAndDecode: an image URL (http, https, data, file or a bare path),
//     optionally resized to a target size
//   - CaptureViewport: a capture of the visible viewport via a ViewportCapturer
//
// # Coordinate System
//
// Raster coordinates are 0-based pixels with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Detection results report
// barcode corners in this space.
//
// # Vector Images
//
// SVG sources are detected by media type or by sniffing the document head and
// are delegated to a Rasterizer (oksvg by default) before any pixels exist.
//
// # Errors
//
// Failures to reach a source (network errors, non-2xx responses, missing
// files, malformed data URLs, capture failures) wrap ErrUnreachable. Bytes
// that arrive but do not decode produce a plain decode error.
//
// # Caching
//
// RasterCache keeps decoded data: URL rasters in a bounded LRU. Network
// sources are never cached because their content may change between clicks.
package imaging
