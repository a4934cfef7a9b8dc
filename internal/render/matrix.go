package render

import "math"

// Matrix2D is a 2D affine transformation matrix laid out as
// [a, b, c, d, e, f]:
//
//	| a  c  e |
//	| b  d  f |
//	| 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Rotate returns a rotation matrix (angle in radians, clockwise on screen).
func Rotate(radians float64) Matrix2D {
	sin, cos := math.Sincos(radians)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// Placement returns translate(x, y) * rotate(rotation).
func Placement(x, y, rotation float64) Matrix2D {
	if rotation == 0 {
		return Translate(x, y)
	}
	return Translate(x, y).Multiply(Rotate(rotation))
}

// Multiply returns m * other: other is applied first, then m.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// ScaleFactor returns the uniform scale of a similarity transform.
func (m Matrix2D) ScaleFactor() float64 {
	return math.Hypot(m[0], m[1])
}

// RotationAngle returns the rotation of the transform in radians.
func (m Matrix2D) RotationAngle() float64 {
	return math.Atan2(m[1], m[0])
}

// IsIdentity reports whether m is the identity.
func (m Matrix2D) IsIdentity() bool {
	return m == Identity()
}

// ToSlice returns the matrix as a slice for serialisation.
func (m Matrix2D) ToSlice() []float64 {
	return m[:]
}
