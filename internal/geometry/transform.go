package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// DefaultUnitScale is the number of screen units per metre.
const DefaultUnitScale = 100

// Frame maps AGV physical coordinates (metres, Y up) onto screen
// coordinates (units, Y down).
type Frame struct {
	UnitScale float64
	OffsetX   float64
	OffsetY   float64
	// Precision is the number of decimal places kept when converting back
	// into the AGV frame. Negative disables rounding.
	Precision int
}

// NewFrame returns a frame with the given scale and offsets.
func NewFrame(unitScale, offsetX, offsetY float64, precision int) Frame {
	if unitScale == 0 {
		unitScale = DefaultUnitScale
	}
	return Frame{UnitScale: unitScale, OffsetX: offsetX, OffsetY: offsetY, Precision: precision}
}

// AgvToScreenX converts an AGV X coordinate to screen X.
func (f Frame) AgvToScreenX(x float64) float64 {
	return x*f.UnitScale - f.OffsetX
}

// AgvToScreenY converts an AGV Y coordinate to screen Y.
func (f Frame) AgvToScreenY(y float64) float64 {
	return -y*f.UnitScale - f.OffsetY
}

// ScreenToAgvX is the inverse of AgvToScreenX.
func (f Frame) ScreenToAgvX(x float64) float64 {
	return Round((x+f.OffsetX)/f.UnitScale, f.Precision)
}

// ScreenToAgvY is the inverse of AgvToScreenY.
func (f Frame) ScreenToAgvY(y float64) float64 {
	return Round(-(y+f.OffsetY)/f.UnitScale, f.Precision)
}

// AgvToScreen converts a point from the AGV frame to the screen frame.
func (f Frame) AgvToScreen(p r2.Point) r2.Point {
	return r2.Point{X: f.AgvToScreenX(p.X), Y: f.AgvToScreenY(p.Y)}
}

// ScreenToAgv converts a point from the screen frame to the AGV frame.
func (f Frame) ScreenToAgv(p r2.Point) r2.Point {
	return r2.Point{X: f.ScreenToAgvX(p.X), Y: f.ScreenToAgvY(p.Y)}
}

// Length converts a length in metres to screen units.
func (f Frame) Length(metres float64) float64 {
	return metres * f.UnitScale
}

// Round rounds v to the given number of decimal places. A negative
// precision returns v unchanged.
func Round(v float64, precision int) float64 {
	if precision < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
