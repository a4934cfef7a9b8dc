package render

import (
	"math"

	"github.com/agv-mapview/backend/internal/geometry"
)

// OpKind is one path operation.
type OpKind string

const (
	OpMoveTo OpKind = "M"
	OpLineTo OpKind = "L"
	OpArc    OpKind = "A"
	OpClose  OpKind = "Z"
	OpStroke OpKind = "stroke"
	OpFill   OpKind = "fill"
)

// PathOp is one entry of an ordered draw operation list. Geometry ops
// (M, L, A, Z) build the current path; stroke and fill paint it. An arc runs
// from the current point to (X, Y) with the given radius; Sweep 0 is
// counter-clockwise and 1 clockwise on screen.
type PathOp struct {
	Kind   OpKind    `json:"k" msgpack:"k"`
	X      float64   `json:"x,omitempty" msgpack:"x,omitempty"`
	Y      float64   `json:"y,omitempty" msgpack:"y,omitempty"`
	Radius float64   `json:"r,omitempty" msgpack:"r,omitempty"`
	Sweep  int       `json:"s,omitempty" msgpack:"s,omitempty"`
	Color  string    `json:"c,omitempty" msgpack:"c,omitempty"`
	Width  float64   `json:"w,omitempty" msgpack:"w,omitempty"`
	Alpha  float64   `json:"a,omitempty" msgpack:"a,omitempty"`
	Dash   []float64 `json:"d,omitempty" msgpack:"d,omitempty"`
}

// SignedRadius returns the arc radius with the sweep encoded as its sign.
func (op PathOp) SignedRadius() float64 {
	if op.Sweep == 1 {
		return -op.Radius
	}
	return op.Radius
}

// PathBuilder accumulates path operations.
type PathBuilder struct {
	ops []PathOp
}

// NewPathBuilder returns an empty builder.
func NewPathBuilder() *PathBuilder {
	return &PathBuilder{ops: make([]PathOp, 0, 8)}
}

func (b *PathBuilder) MoveTo(x, y float64) *PathBuilder {
	b.ops = append(b.ops, PathOp{Kind: OpMoveTo, X: x, Y: y})
	return b
}

func (b *PathBuilder) LineTo(x, y float64) *PathBuilder {
	b.ops = append(b.ops, PathOp{Kind: OpLineTo, X: x, Y: y})
	return b
}

// ArcTo adds an arc to (x, y). The sign of radius selects the sweep.
func (b *PathBuilder) ArcTo(radius float64, x, y float64) *PathBuilder {
	b.ops = append(b.ops, PathOp{
		Kind:   OpArc,
		X:      x,
		Y:      y,
		Radius: math.Abs(radius),
		Sweep:  geometry.SweepFlag(radius),
	})
	return b
}

func (b *PathBuilder) Close() *PathBuilder {
	b.ops = append(b.ops, PathOp{Kind: OpClose})
	return b
}

// Rect adds a closed rectangle centred on (cx, cy).
func (b *PathBuilder) Rect(cx, cy, w, h float64) *PathBuilder {
	hw, hh := w/2, h/2
	return b.MoveTo(cx-hw, cy-hh).
		LineTo(cx+hw, cy-hh).
		LineTo(cx+hw, cy+hh).
		LineTo(cx-hw, cy+hh).
		Close()
}

// Circle adds a closed circle made of two half arcs.
func (b *PathBuilder) Circle(cx, cy, r float64) *PathBuilder {
	return b.MoveTo(cx-r, cy).
		ArcTo(-r, cx+r, cy).
		ArcTo(-r, cx-r, cy).
		Close()
}

// Polyline adds an open polyline through pts given as x, y pairs.
func (b *PathBuilder) Polyline(pts ...float64) *PathBuilder {
	for i := 0; i+1 < len(pts); i += 2 {
		if i == 0 {
			b.MoveTo(pts[i], pts[i+1])
		} else {
			b.LineTo(pts[i], pts[i+1])
		}
	}
	return b
}

func (b *PathBuilder) Stroke(color string, width, alpha float64) *PathBuilder {
	b.ops = append(b.ops, PathOp{Kind: OpStroke, Color: color, Width: width, Alpha: alpha})
	return b
}

func (b *PathBuilder) StrokeDashed(color string, width, alpha float64, dash []float64) *PathBuilder {
	b.ops = append(b.ops, PathOp{Kind: OpStroke, Color: color, Width: width, Alpha: alpha, Dash: dash})
	return b
}

func (b *PathBuilder) Fill(color string, alpha float64) *PathBuilder {
	b.ops = append(b.ops, PathOp{Kind: OpFill, Color: color, Alpha: alpha})
	return b
}

// Ops returns the accumulated operations.
func (b *PathBuilder) Ops() []PathOp {
	return b.ops
}
