// Package detection finds barcodes in rasters and decides which of them lie
// under a click.
//
// The Decoder contract is the boundary to the decoding algorithm. QRDecoder is
// the bundled implementation, backed by gozxing's multi-code QR reader; any
// decoder that reports a payload and an outline per code can replace it.
//
// # Coordinate System
//
// Corner points use raster pixel coordinates:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Under-Cursor Filtering
//
// FilterUnderCursor applies the geometry engine's tolerant containment test to
// each outline. A click is kept when, after moving it toward the outline's
// centroid by the tolerance, it is inside the outline or exactly on it.
package detection
