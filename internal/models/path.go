package models

import (
	"strconv"
	"strings"
)

// AGVPath is one directed travel segment, straight or arced. Endpoints are
// screen coordinates; a zero Radius is straight and its sign encodes the
// sweep direction.
type AGVPath struct {
	ID          int     `msgpack:"id" json:"id"`
	PathID      string  `msgpack:"pathId" json:"pathId"`
	ParkID      string  `msgpack:"parkId,omitempty" json:"parkId,omitempty"`
	X1          float64 `msgpack:"x1" json:"x1"`
	Y1          float64 `msgpack:"y1" json:"y1"`
	X2          float64 `msgpack:"x2" json:"x2"`
	Y2          float64 `msgpack:"y2" json:"y2"`
	Radius      float64 `msgpack:"radius" json:"radius"`
	Forward     bool    `msgpack:"forward" json:"forward"`
	Information string  `msgpack:"information,omitempty" json:"information,omitempty"`
}

// ShapeKey identifies the path's geometry independent of direction: the
// endpoints are ordered and the radius sign flipped when they are swapped,
// so a segment and its reverse share one template.
func (p *AGVPath) ShapeKey() string {
	return SegmentKey(p.X1, p.Y1, p.X2, p.Y2, p.Radius)
}

// SegmentKey is the order-normalised key for a segment.
func SegmentKey(x1, y1, x2, y2, radius float64) string {
	if x1 > x2 || (x1 == x2 && y1 > y2) {
		x1, y1, x2, y2 = x2, y2, x1, y1
		radius = -radius
	}
	var b strings.Builder
	b.Grow(48)
	b.WriteString("path|")
	b.WriteString(formatDim(x1))
	b.WriteByte(',')
	b.WriteString(formatDim(y1))
	b.WriteByte('|')
	b.WriteString(formatDim(x2))
	b.WriteByte(',')
	b.WriteString(formatDim(y2))
	b.WriteByte('|')
	b.WriteString(formatDim(radius))
	return b.String()
}

// EndpointKey identifies the unordered endpoint pair of a segment,
// ignoring radius.
func EndpointKey(x1, y1, x2, y2 float64) string {
	a, b := PointKey(x1, y1), PointKey(x2, y2)
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// PathEnd records that a path starts or ends at a junction point.
type PathEnd struct {
	PathID string `msgpack:"pathId" json:"pathId"`
	Start  bool   `msgpack:"start" json:"start"`
}

// AGVPathPoint is a path junction keyed by its canonical "x,y" string.
type AGVPathPoint struct {
	Key    string    `msgpack:"key" json:"key"`
	X      float64   `msgpack:"x" json:"x"`
	Y      float64   `msgpack:"y" json:"y"`
	Ends   []PathEnd `msgpack:"ends" json:"ends"`
	Radius float64   `msgpack:"radius" json:"radius"`
}

// PointKey is the canonical "x,y" key of a screen location.
func PointKey(x, y float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64) + "," + strconv.FormatFloat(y, 'f', -1, 64)
}
