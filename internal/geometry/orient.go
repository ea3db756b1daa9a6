package geometry

import (
	"math"
	"math/big"
)

// Point represents a 2D coordinate in raster pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// epsilon is half an ulp of 1.0 for float64 (2^-53).
const epsilon = 1.0 / (1 << 53)

// ccwErrBound is Shewchuk's first-stage error bound for the 2D orientation
// determinant: (3 + 16ε)ε.
var ccwErrBound = (3.0 + 16.0*epsilon) * epsilon

// Orient returns the sign of the orientation determinant of the triangle
// (a, b, c):
//   - +1 if c lies to the left of the directed line a→b (counter-clockwise
//     in y-up coordinates)
//   - -1 if c lies to the right
//   - 0 if the three points are exactly collinear
//
// The sign is exact for all finite inputs. Non-finite inputs return 0.
func Orient(a, b, c Point) int {
	if !a.IsFinite() || !b.IsFinite() || !c.IsFinite() {
		return 0
	}
	acx, bcy := a.X-c.X, b.Y-c.Y
	acy, bcx := a.Y-c.Y, b.X-c.X

	// Float subtraction never flips the sign of a difference and only yields
	// zero for equal operands, so the signs of both products are exact even
	// when the products themselves underflow.
	signLeft := sign(acx) * sign(bcy)
	signRight := sign(acy) * sign(bcx)
	switch {
	case signLeft == 0:
		return -signRight
	case signRight == 0:
		return signLeft
	case signLeft != signRight:
		return signLeft
	}

	detLeft := acx * bcy
	detRight := acy * bcx
	det := detLeft - detRight
	detSum := math.Abs(detLeft) + math.Abs(detRight)
	if detSum > minFilterMagnitude && !math.IsInf(detSum, 0) {
		if bound := ccwErrBound * detSum; det >= bound || -det >= bound {
			return sign(det)
		}
	}
	return orientExact(a, b, c)
}

// minFilterMagnitude keeps the float filter away from the subnormal range,
// where the relative error bound no longer holds.
const minFilterMagnitude = 1e-280

// orientExact evaluates the determinant with exact rational arithmetic.
// Every finite float64 is a dyadic rational, so the result is exact.
func orientExact(a, b, c Point) int {
	rat := func(v float64) *big.Rat { return new(big.Rat).SetFloat64(v) }

	acx := new(big.Rat).Sub(rat(a.X), rat(c.X))
	bcy := new(big.Rat).Sub(rat(b.Y), rat(c.Y))
	acy := new(big.Rat).Sub(rat(a.Y), rat(c.Y))
	bcx := new(big.Rat).Sub(rat(b.X), rat(c.X))

	left := new(big.Rat).Mul(acx, bcy)
	right := new(big.Rat).Mul(acy, bcx)
	return left.Cmp(right)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
