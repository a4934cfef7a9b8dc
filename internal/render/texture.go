package render

import (
	"strconv"

	"github.com/agv-mapview/backend/internal/models"
)

// ParkTexture returns the draw operations of a park template, centred on
// the origin with the length along local X. It depends only on the
// attributes that make up the park's shape key.
func ParkTexture(p *models.Park, selected bool, style *models.StyleSheet) []PathOp {
	stroke := parkStroke(p, style)
	if selected {
		stroke = style.Park.Selected
	}
	hl, hw := p.L/2, p.W/2

	b := NewPathBuilder().
		Rect(0, 0, p.L, p.W).
		Fill(stroke.Color, style.Park.FillOpacity).
		Stroke(stroke.Color, stroke.Width, stroke.Opacity)

	arrow := style.Park.ArrowSize
	if limit := min(hl, hw) * 0.8; arrow > limit {
		arrow = limit
	}
	for _, dir := range modeDirections(p.Mode) {
		b.Polyline(arrowPoints(dir, hl, hw, arrow)...)
	}
	if len(modeDirections(p.Mode)) > 0 {
		b.Stroke(stroke.Color, stroke.Width, stroke.Opacity)
	}

	switch {
	case p.Type == models.ParkTypeCharging:
		// Bolt across the centre.
		s := arrow
		b.Polyline(-s/2, -s, s/4, -s/6, -s/4, s/6, s/2, s)
		b.Stroke(stroke.Color, stroke.Width, stroke.Opacity)
	case p.Type == models.ParkTypeAGV:
		b.Circle(0, 0, arrow/2)
		b.Stroke(stroke.Color, stroke.Width, stroke.Opacity)
	}
	if p.IsTruck {
		inset := min(hl, hw) * 0.2
		b.Rect(0, 0, p.L-2*inset, p.W-2*inset)
		b.Stroke(style.Park.Truck.Color, style.Park.Truck.Width, style.Park.Truck.Opacity)
	}
	return b.Ops()
}

func parkStroke(p *models.Park, style *models.StyleSheet) models.Stroke {
	switch {
	case p.IsTruck:
		return style.Park.Truck
	case p.Type == models.ParkTypeAGV:
		return style.Park.AGV
	case p.Type == models.ParkTypeCharging:
		return style.Park.Charging
	}
	return style.Park.Normal
}

// modeDirections returns the entry directions drawn as arrows: unit
// vectors in the park's local frame.
func modeDirections(m models.ParkMode) [][2]float64 {
	switch m {
	case models.ParkModeDual:
		return [][2]float64{{1, 0}, {-1, 0}}
	case models.ParkModeFour:
		return [][2]float64{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	}
	return [][2]float64{{1, 0}}
}

// arrowPoints returns a chevron pointing along dir near the park edge.
func arrowPoints(dir [2]float64, hl, hw, size float64) []float64 {
	reach := hl
	if dir[0] == 0 {
		reach = hw
	}
	tipX, tipY := dir[0]*(reach-size/2), dir[1]*(reach-size/2)
	baseX, baseY := tipX-dir[0]*size, tipY-dir[1]*size
	// Perpendicular offset for the chevron wings.
	px, py := -dir[1]*size/2, dir[0]*size/2
	return []float64{
		baseX + px, baseY + py,
		tipX, tipY,
		baseX - px, baseY - py,
	}
}

// CandidateTexture is the dashed ghost rectangle drawn over candidate
// parks. Its geometry is constant.
func CandidateTexture(style *models.StyleSheet) []PathOp {
	c := style.Candidate
	return NewPathBuilder().
		Rect(0, 0, c.Size, c.Size).
		StrokeDashed(c.Stroke.Color, c.Stroke.Width, c.Stroke.Opacity, c.Dash).
		Ops()
}

// StockTexture is the filled occupancy block of a park of size l x w.
func StockTexture(l, w float64, style *models.StyleSheet) []PathOp {
	s := style.Park.Stock
	return NewPathBuilder().
		Rect(0, 0, l*0.7, w*0.7).
		Fill(s.Color, s.Opacity).
		Stroke(s.Color, s.Width, s.Opacity).
		Ops()
}

// StatusTexture is the coloured status dot.
func StatusTexture(status models.ParkStatus, style *models.StyleSheet) []PathOp {
	color, ok := style.Tag.Status[status]
	if !ok {
		color = style.Tag.Status[models.ParkStatusUnknown]
	}
	r := style.Tag.FontSize / 2
	return NewPathBuilder().
		Circle(0, 0, r).
		Fill(color, 1).
		Stroke(style.Tag.Color, 1, 1).
		Ops()
}

// PathTexture draws a segment in absolute screen coordinates.
func PathTexture(x1, y1, x2, y2, radius float64, s models.Stroke) []PathOp {
	b := NewPathBuilder().MoveTo(x1, y1)
	if radius == 0 {
		b.LineTo(x2, y2)
	} else {
		b.ArcTo(radius, x2, y2)
	}
	return b.Stroke(s.Color, s.Width, s.Opacity).Ops()
}

// PointTexture is a junction dot at the origin.
func PointTexture(radius, strokeWidth float64, style *models.StyleSheet) []PathOp {
	return NewPathBuilder().
		Circle(0, 0, radius).
		Fill(style.Point.Fill, 1).
		Stroke(style.Point.Color, strokeWidth, 1).
		Ops()
}

// MarkTexture is a QR marker outline of size w x h at the origin.
func MarkTexture(w, h float64, style *models.StyleSheet) []PathOp {
	m := style.Mark
	return NewPathBuilder().
		Rect(0, 0, w, h).
		Stroke(m.Color, m.Width, m.Opacity).
		MoveTo(-w/2, 0).LineTo(w/2, 0).
		MoveTo(0, -h/2).LineTo(0, h/2).
		Stroke(m.Color, m.Width/2, m.Opacity).
		Ops()
}

// Shape keys of the non-park templates.
func pathKey(p *models.AGVPath, overlay OverlayKind) string {
	if overlay == "" {
		return p.ShapeKey()
	}
	return "overlay:" + string(overlay) + "|" + p.ShapeKey()
}

func pointKey(radius, strokeWidth float64) string {
	return "point|" + formatKeyFloat(radius) + "|" + formatKeyFloat(strokeWidth)
}

func markKey(w, h float64) string {
	return "mark|" + formatKeyFloat(w) + "|" + formatKeyFloat(h)
}

func stockKey(l, w float64) string {
	return "stock|" + formatKeyFloat(l) + "|" + formatKeyFloat(w)
}

func statusKey(s models.ParkStatus) string {
	return "status|" + string(s)
}

const candidateKey = "candidate"

func formatKeyFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
