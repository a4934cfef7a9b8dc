package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParkType classifies what a park slot is used for.
type ParkType int

const (
	ParkTypeNormal ParkType = iota
	ParkTypeAGV
	ParkTypeCharging
)

func (t ParkType) String() string {
	switch t {
	case ParkTypeAGV:
		return "agv"
	case ParkTypeCharging:
		return "charging"
	default:
		return "normal"
	}
}

// ParseParkType accepts either the wire integer or the name.
func ParseParkType(s string) (ParkType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "normal":
		return ParkTypeNormal, nil
	case "1", "agv", "agvpark":
		return ParkTypeAGV, nil
	case "2", "charging", "chargingpark":
		return ParkTypeCharging, nil
	}
	return ParkTypeNormal, fmt.Errorf("unknown park type %q", s)
}

// ParkMode is the number of directions an AGV may enter a park from.
type ParkMode int

const (
	ParkModeSingle ParkMode = iota
	ParkModeDual
	ParkModeFour
)

func (m ParkMode) String() string {
	switch m {
	case ParkModeDual:
		return "dual"
	case ParkModeFour:
		return "four"
	default:
		return "single"
	}
}

// ParseParkMode accepts either the wire integer or the name.
func ParseParkMode(s string) (ParkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "single", "singledirection":
		return ParkModeSingle, nil
	case "1", "dual", "dualdirection":
		return ParkModeDual, nil
	case "2", "four", "fourdirection":
		return ParkModeFour, nil
	}
	return ParkModeSingle, fmt.Errorf("unknown park mode %q", s)
}

// Anchors are the label/tag placement points around a park, in screen
// coordinates: top, bottom, left and right edge midpoints.
type Anchors struct {
	TX float64 `msgpack:"tx" json:"tX"`
	TY float64 `msgpack:"ty" json:"tY"`
	BX float64 `msgpack:"bx" json:"bX"`
	BY float64 `msgpack:"by" json:"bY"`
	LX float64 `msgpack:"lx" json:"lX"`
	LY float64 `msgpack:"ly" json:"lY"`
	RX float64 `msgpack:"rx" json:"rX"`
	RY float64 `msgpack:"ry" json:"rY"`
}

// Park is a normalised parking slot. Coordinates and sizes are screen units.
type Park struct {
	ID          int      `msgpack:"id" json:"id"`
	ParkID      string   `msgpack:"parkId" json:"parkId"`
	X           float64  `msgpack:"x" json:"x"`
	Y           float64  `msgpack:"y" json:"y"`
	W           float64  `msgpack:"w" json:"w"`
	L           float64  `msgpack:"l" json:"l"`
	Pi          float64  `msgpack:"pi" json:"pi"`
	Rotate      float64  `msgpack:"rotate" json:"rotate"`
	Type        ParkType `msgpack:"type" json:"type"`
	Mode        ParkMode `msgpack:"mode" json:"mode"`
	TruckID     string   `msgpack:"truckId,omitempty" json:"truckId,omitempty"`
	IsTruck     bool     `msgpack:"isTruck" json:"isTruck"`
	Layers      []int    `msgpack:"layers,omitempty" json:"parkLayers,omitempty"`
	Anchors     Anchors  `msgpack:"anchors" json:"anchors"`
	BackPathIDs []string `msgpack:"backPathIds,omitempty" json:"backPathIds,omitempty"`
	Information string   `msgpack:"information,omitempty" json:"information,omitempty"`
}

// OnLayer reports whether the park exists on the given floor. An empty
// layer list means every floor.
func (p *Park) OnLayer(layer int) bool {
	if len(p.Layers) == 0 {
		return true
	}
	for _, l := range p.Layers {
		if l == layer {
			return true
		}
	}
	return false
}

// ShapeKey identifies the park's visual shape. Parks with equal keys are
// drawn identically and share one template.
func (p *Park) ShapeKey(selected bool) string {
	var b strings.Builder
	b.Grow(48)
	b.WriteString("park|")
	b.WriteString(formatDim(p.W))
	b.WriteByte('|')
	b.WriteString(formatDim(p.L))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(int(p.Type)))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(int(p.Mode)))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(p.IsTruck))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(selected))
	return b.String()
}

// formatDim renders a dimension with a fixed precision so that float noise
// does not split otherwise identical shapes.
func formatDim(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// UpdateAnchors recomputes the edge-midpoint anchors from the park's
// current position, size and rotation. The length axis is the park's local X.
func (p *Park) UpdateAnchors() {
	sin, cos := math.Sincos(p.Rotate)
	hw, hl := p.W/2, p.L/2
	p.Anchors = Anchors{
		TX: p.X + hw*sin,
		TY: p.Y - hw*cos,
		BX: p.X - hw*sin,
		BY: p.Y + hw*cos,
		LX: p.X - hl*cos,
		LY: p.Y - hl*sin,
		RX: p.X + hl*cos,
		RY: p.Y + hl*sin,
	}
}
