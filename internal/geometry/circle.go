package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// collinearEpsilon is the determinant magnitude below which three points are
// treated as collinear.
const collinearEpsilon = 1e-12

// NaNPoint is the sentinel returned by solvers that have no solution.
var NaNPoint = r2.Point{X: math.NaN(), Y: math.NaN()}

// IsNaNPoint reports whether either coordinate of p is NaN.
func IsNaNPoint(p r2.Point) bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}

// CircleCenterFrom3Points returns the center of the circle through p1, p2
// and p3 by intersecting the perpendicular bisectors of p1p2 and p2p3.
// Collinear input yields NaNPoint; callers must check with IsNaNPoint.
func CircleCenterFrom3Points(p1, p2, p3 r2.Point) r2.Point {
	a1, b1 := p2.X-p1.X, p2.Y-p1.Y
	a2, b2 := p3.X-p2.X, p3.Y-p2.Y
	c1 := (p2.X*p2.X - p1.X*p1.X + p2.Y*p2.Y - p1.Y*p1.Y) / 2
	c2 := (p3.X*p3.X - p2.X*p2.X + p3.Y*p3.Y - p2.Y*p2.Y) / 2

	det := a1*b2 - a2*b1
	if math.Abs(det) < collinearEpsilon {
		return NaNPoint
	}
	return r2.Point{
		X: (c1*b2 - c2*b1) / det,
		Y: (a1*c2 - a2*c1) / det,
	}
}

// CircleCenterFromRadius returns the center of the circle of the given
// signed radius passing through p1 and p2, in screen coordinates.
//
// A zero radius denotes a straight segment and yields the midpoint. A
// positive radius places the center so that travelling p1 to p2 along the
// minor arc is counter-clockwise on screen (sweep flag 0); a negative radius
// mirrors it (sweep flag 1).
//
// No check is made that |radius| is at least half the chord length: an
// undersized radius yields NaN coordinates. Use CircleCenterFromRadiusChecked
// where the caller cannot validate the input.
func CircleCenterFromRadius(p1, p2 r2.Point, radius float64) r2.Point {
	mid := p1.Add(p2).Mul(0.5)
	if radius == 0 {
		return mid
	}
	chord := p2.Sub(p1)
	d := chord.Norm()
	if d == 0 {
		return NaNPoint
	}
	h := math.Sqrt(radius*radius - d*d/4)
	perp := chord.Ortho().Mul(1 / d)
	if radius > 0 {
		return mid.Sub(perp.Mul(h))
	}
	return mid.Add(perp.Mul(h))
}

// CircleCenterFromRadiusChecked is CircleCenterFromRadius with validation:
// ok is false when the radius is too small for the chord or the endpoints
// coincide.
func CircleCenterFromRadiusChecked(p1, p2 r2.Point, radius float64) (r2.Point, bool) {
	c := CircleCenterFromRadius(p1, p2, radius)
	return c, !IsNaNPoint(c)
}

// SweepFlag returns the arc sweep flag for a signed radius: 0 for
// counter-clockwise (radius > 0), 1 for clockwise (radius < 0). A straight
// segment reports 0.
func SweepFlag(radius float64) int {
	if radius < 0 {
		return 1
	}
	return 0
}

// ArcAngles returns the start and end angles (screen radians) of the minor
// arc from p1 to p2 around center, ordered for linear interpolation in the
// direction given by sweep: increasing for clockwise, decreasing for
// counter-clockwise.
func ArcAngles(center, p1, p2 r2.Point, sweep int) (float64, float64) {
	a1 := math.Atan2(p1.Y-center.Y, p1.X-center.X)
	a2 := math.Atan2(p2.Y-center.Y, p2.X-center.X)
	if sweep == 1 {
		for a2 < a1 {
			a2 += twoPi
		}
	} else {
		for a2 > a1 {
			a2 -= twoPi
		}
	}
	return a1, a2
}

// LineAngle returns the screen-frame direction of the segment from
// (x1,y1) to (x2,y2) in degrees within [0, 360). A zero-length segment
// returns 0.
func LineAngle(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	if dx == 0 && dy == 0 {
		return 0
	}
	return NormalizeAngle(RadToDeg(math.Atan2(dy, dx)))
}

// Distance returns the Euclidean distance between two points.
func Distance(p1, p2 r2.Point) float64 {
	return p2.Sub(p1).Norm()
}
