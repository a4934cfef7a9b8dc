// Package geometry converts between the AGV physical frame and the screen
// frame, and between the four angle conventions used by the fleet and the
// renderer.
//
// The conventions are:
//
//	pi     AGV frame, radians, counter-clockwise from +X, range (-π, π]
//	theta  AGV frame, degrees, counter-clockwise from +X, range (-180, 180]
//	rotate screen frame, radians, clockwise from +X (Y points down), range [0, 2π)
//	angle  screen frame, degrees, clockwise from +X (Y points down), range [0, 360)
//
// All functions are pure.
package geometry

import "math"

const twoPi = 2 * math.Pi

// boundaryEpsilon absorbs rounding at the open end of a signed range so that
// -half computed as -half+ulp still lands on +half.
const boundaryEpsilon = 1e-12

// normSigned wraps v into (-half, half] for a period of 2*half.
func normSigned(v, half float64) float64 {
	period := 2 * half
	v = math.Mod(v, period)
	if v > half {
		v -= period
	}
	if v <= -half+boundaryEpsilon {
		v += period
	}
	return v
}

// normPositive wraps v into [0, period).
func normPositive(v, period float64) float64 {
	v = math.Mod(v, period)
	if v < 0 {
		v += period
	}
	// math.Mod of a tiny negative number can round up to period.
	if v >= period {
		v -= period
	}
	return v
}

// NormalizePi wraps an AGV-frame radian value into (-π, π].
func NormalizePi(pi float64) float64 { return normSigned(pi, math.Pi) }

// NormalizeTheta wraps an AGV-frame degree value into (-180, 180].
func NormalizeTheta(theta float64) float64 { return normSigned(theta, 180) }

// NormalizeRotate wraps a screen-frame radian value into [0, 2π).
func NormalizeRotate(rotate float64) float64 { return normPositive(rotate, twoPi) }

// NormalizeAngle wraps a screen-frame degree value into [0, 360).
func NormalizeAngle(angle float64) float64 { return normPositive(angle, 360) }

// PiToTheta converts AGV radians to AGV degrees.
func PiToTheta(pi float64) float64 {
	return NormalizeTheta(pi * 180 / math.Pi)
}

// ThetaToPi converts AGV degrees to AGV radians.
func ThetaToPi(theta float64) float64 {
	return NormalizePi(theta * math.Pi / 180)
}

// PiToRotate converts AGV radians to screen radians. The Y axis flips, so
// the sense of rotation flips with it.
func PiToRotate(pi float64) float64 {
	return NormalizeRotate(-pi)
}

// RotateToPi converts screen radians to AGV radians.
func RotateToPi(rotate float64) float64 {
	return NormalizePi(-rotate)
}

// PiToAngle converts AGV radians to screen degrees.
func PiToAngle(pi float64) float64 {
	return NormalizeAngle(-pi * 180 / math.Pi)
}

// AngleToPi converts screen degrees to AGV radians.
func AngleToPi(angle float64) float64 {
	return NormalizePi(-angle * math.Pi / 180)
}

// ThetaToAngle converts AGV degrees to screen degrees.
func ThetaToAngle(theta float64) float64 {
	return NormalizeAngle(-theta)
}

// AngleToTheta converts screen degrees to AGV degrees.
func AngleToTheta(angle float64) float64 {
	return NormalizeTheta(-angle)
}

// ThetaToRotate converts AGV degrees to screen radians.
func ThetaToRotate(theta float64) float64 {
	return NormalizeRotate(-theta * math.Pi / 180)
}

// RotateToTheta converts screen radians to AGV degrees.
func RotateToTheta(rotate float64) float64 {
	return NormalizeTheta(-rotate * 180 / math.Pi)
}

// DegToRad converts degrees to radians without wrapping.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees without wrapping.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}
