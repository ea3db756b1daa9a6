// Package geometry implements the numerically robust point-in-region test used
// to decide which decoded barcodes lie under the user's cursor.
//
// # Coordinate System
//
// Points use raster pixel coordinates as float64:
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward
//   - Y increases downward
//
// The predicates do not depend on the handedness of the axes; only the sign
// conventions of Orient are stated in y-up terms for readability.
//
// # Robustness
//
// A naive cross product evaluated in floating point can report the wrong sign
// for points that are (or are nearly) collinear, which misclassifies points
// lying exactly on a polygon edge or vertex. Orient is an adaptive predicate:
// it evaluates the determinant in float64, accepts the result when it exceeds a
// forward error bound, and otherwise recomputes it exactly with math/big
// rationals. Every decision in PointInPolygon is derived either from Orient or
// from exact float comparisons, so the classification is exact for the given
// inputs.
//
// # Classification
//
// PointInPolygon returns a tri-state Location:
//   - Outside: strictly outside the polygon
//   - OnBoundary: on an edge or vertex
//   - Inside: strictly inside
//
// Both OnBoundary and Inside count as a hit for barcode filtering.
package geometry
