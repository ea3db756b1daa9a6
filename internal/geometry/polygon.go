package geometry

import "math"

// Location classifies a point relative to a polygon.
type Location int

const (
	// Outside means the point is strictly outside the polygon.
	Outside Location = iota
	// OnBoundary means the point lies on an edge or vertex.
	OnBoundary
	// Inside means the point is strictly inside the polygon.
	Inside
)

// String returns the lowercase name of the location.
func (l Location) String() string {
	switch l {
	case Outside:
		return "outside"
	case OnBoundary:
		return "on-boundary"
	case Inside:
		return "inside"
	default:
		return "unknown"
	}
}

// Hit reports whether the location counts as "under the point":
// inside or on the boundary.
func (l Location) Hit() bool {
	return l == Inside || l == OnBoundary
}

// PointInPolygon classifies p against the closed polygon whose vertices are
// given in order (either winding). The last vertex connects back to the first.
//
// # Algorithm
//
//  1. Boundary pass: p is OnBoundary if it is exactly collinear with an edge
//     and within that edge's bounding box. A zero-length edge only touches its
//     own endpoint.
//  2. Crossing pass: a horizontal ray from p toward +X is tested against each
//     edge with the half-open rule (an edge counts when exactly one endpoint
//     has Y > p.Y). Whether the crossing lies to the right of p is decided by
//     the sign of Orient, never by computing an intersection coordinate.
//
// Horizontal edges never straddle the ray, and a vertex shared by two edges is
// counted by at most one of them, so no floating-point tie-breaking is needed.
//
// Returns Outside for an empty polygon or a non-finite point.
func PointInPolygon(polygon []Point, p Point) Location {
	n := len(polygon)
	if n == 0 || !p.IsFinite() {
		return Outside
	}

	for i := 0; i < n; i++ {
		if onSegment(polygon[i], polygon[(i+1)%n], p) {
			return OnBoundary
		}
	}

	inside := false
	for i := 0; i < n; i++ {
		a := polygon[i]
		b := polygon[(i+1)%n]
		if (a.Y > p.Y) == (b.Y > p.Y) {
			continue
		}
		o := Orient(a, b, p)
		if a.Y < b.Y {
			// upward edge: crossing is right of p when p is left of a→b
			if o > 0 {
				inside = !inside
			}
		} else if o < 0 {
			inside = !inside
		}
	}

	if inside {
		return Inside
	}
	return Outside
}

// onSegment reports whether p lies exactly on the closed segment a-b.
func onSegment(a, b, p Point) bool {
	if a == b {
		return p == a
	}
	if p.X < math.Min(a.X, b.X) || p.X > math.Max(a.X, b.X) {
		return false
	}
	if p.Y < math.Min(a.Y, b.Y) || p.Y > math.Max(a.Y, b.Y) {
		return false
	}
	return Orient(a, b, p) == 0
}

// Centroid returns the area-weighted centroid of the polygon.
//
// When the polygon has zero signed area (fewer than three vertices, or all
// vertices collinear) the mean of the vertices is returned instead, so the
// result is always a finite point for finite input. An empty polygon yields
// the origin.
func Centroid(polygon []Point) Point {
	n := len(polygon)
	if n == 0 {
		return Point{}
	}

	// Translate to the first vertex to limit cancellation for large coordinates.
	origin := polygon[0]
	var area2, cx, cy float64
	for i := 0; i < n; i++ {
		a := Point{polygon[i].X - origin.X, polygon[i].Y - origin.Y}
		j := (i + 1) % n
		b := Point{polygon[j].X - origin.X, polygon[j].Y - origin.Y}
		cross := a.X*b.Y - b.X*a.Y
		area2 += cross
		cx += (a.X + b.X) * cross
		cy += (a.Y + b.Y) * cross
	}

	if area2 == 0 || math.IsNaN(area2) || math.IsInf(area2, 0) {
		var sx, sy float64
		for _, v := range polygon {
			sx += v.X
			sy += v.Y
		}
		return Point{sx / float64(n), sy / float64(n)}
	}

	return Point{
		X: origin.X + cx/(3*area2),
		Y: origin.Y + cy/(3*area2),
	}
}

// ShiftToward moves query toward target by at most distance, never past it.
//
//	d        = |query - target|
//	adjusted = max(d - distance, 0)
//	factor   = adjusted / d        (1 when d == 0)
//	result   = target + (query - target) * factor
//
// A query already at the target is returned unchanged. A negative distance is
// treated as zero.
func ShiftToward(query, target Point, distance float64) Point {
	dx := query.X - target.X
	dy := query.Y - target.Y
	d := math.Hypot(dx, dy)
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return query
	}
	if distance <= 0 || math.IsNaN(distance) {
		return query
	}
	adjusted := math.Max(d-distance, 0)
	factor := adjusted / d
	return Point{
		X: target.X + dx*factor,
		Y: target.Y + dy*factor,
	}
}

// Locate applies the tolerance shift toward the polygon's centroid and then
// classifies the shifted point. This is the complete under-cursor test for a
// single barcode outline.
func Locate(polygon []Point, query Point, tolerance float64) Location {
	if len(polygon) == 0 {
		return Outside
	}
	shifted := ShiftToward(query, Centroid(polygon), tolerance)
	return PointInPolygon(polygon, shifted)
}
