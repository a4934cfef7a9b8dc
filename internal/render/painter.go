package render

import (
	"github.com/agv-mapview/backend/internal/models"
)

// Painter creates the drawables of map entities. Every shape goes through
// the template cache; per-entity state (position, rotation, selection) is
// expressed by the instance group or by choosing another template key.
type Painter struct {
	surface   Surface
	templates *TemplateCache
	style     *models.StyleSheet
}

// NewPainter creates a painter drawing with style.
func NewPainter(s Surface, templates *TemplateCache, style *models.StyleSheet) *Painter {
	if style == nil {
		style = models.DefaultStyleSheet()
	}
	return &Painter{surface: s, templates: templates, style: style}
}

// Style returns the style sheet.
func (p *Painter) Style() *models.StyleSheet { return p.style }

// Templates returns the template cache.
func (p *Painter) Templates() *TemplateCache { return p.templates }

// Park returns an instance of the park's template placed at the park.
func (p *Painter) Park(park *models.Park, selected bool) Group {
	return p.templates.Instance(park.ShapeKey(selected), func() []PathOp {
		return ParkTexture(park, selected, p.style)
	}, park.X, park.Y, park.Rotate)
}

// Candidate returns a ghost rectangle instance over the park.
func (p *Painter) Candidate(park *models.Park) Group {
	return p.templates.Instance(candidateKey, func() []PathOp {
		return CandidateTexture(p.style)
	}, park.X, park.Y, park.Rotate)
}

// Stock returns an occupancy block instance over the park.
func (p *Painter) Stock(park *models.Park) Group {
	return p.templates.Instance(stockKey(park.L, park.W), func() []PathOp {
		return StockTexture(park.L, park.W, p.style)
	}, park.X, park.Y, park.Rotate)
}

// Status returns a status dot instance at the park's top anchor.
func (p *Painter) Status(park *models.Park, status models.ParkStatus) Group {
	return p.templates.Instance(statusKey(status), func() []PathOp {
		return StatusTexture(status, p.style)
	}, park.Anchors.TX, park.Anchors.TY, 0)
}

// Label returns the park's id label at its centre.
func (p *Painter) Label(park *models.Park, content string) Drawable {
	return p.surface.NewText(TextSpec{
		X:       park.X,
		Y:       park.Y,
		Content: content,
		Color:   p.style.Park.LabelColor,
		Size:    p.style.Park.LabelFontSize,
		AnchorX: 0.5,
		AnchorY: 0.5,
	})
}

// Tag returns a numeric tag text at the park's bottom anchor.
func (p *Painter) Tag(park *models.Park, content string) Drawable {
	return p.surface.NewText(TextSpec{
		X:       park.Anchors.BX,
		Y:       park.Anchors.BY,
		Content: content,
		Color:   p.style.Tag.Color,
		Size:    p.style.Tag.FontSize,
		AnchorX: 0.5,
		AnchorY: 0,
	})
}

// Path returns an instance of the path's segment template, in the base
// style or the given overlay style.
func (p *Painter) Path(path *models.AGVPath, overlay OverlayKind) Group {
	stroke := p.style.Path.Base
	switch overlay {
	case OverlayMove:
		stroke = p.style.Path.Move
	case OverlayControl:
		stroke = p.style.Path.Control
	case OverlayAssist:
		stroke = p.style.Path.Assist
	}
	return p.templates.Instance(pathKey(path, overlay), func() []PathOp {
		return PathTexture(path.X1, path.Y1, path.X2, path.Y2, path.Radius, stroke)
	}, 0, 0, 0)
}

// Point returns a junction dot instance scaled by factor.
func (p *Painter) Point(pt *models.AGVPathPoint, factor float64) Group {
	r := pt.Radius * factor
	w := p.style.Point.StrokeWidth * factor
	return p.templates.Instance(pointKey(r, w), func() []PathOp {
		return PointTexture(r, w, p.style)
	}, pt.X, pt.Y, 0)
}

// Mark returns a QR marker instance.
func (p *Painter) Mark(m *models.Mark) Group {
	return p.templates.Instance(markKey(m.W, m.H), func() []PathOp {
		return MarkTexture(m.W, m.H, p.style)
	}, m.X, m.Y, 0)
}

// Line returns a free-standing line. Lines are unique and not templated.
func (p *Painter) Line(l *models.LineShape) Drawable {
	s := p.style.Line
	if l.Color != "" {
		s.Color = l.Color
	}
	if l.Width > 0 {
		s.Width = l.Width
	}
	return p.surface.NewPath(NewPathBuilder().
		MoveTo(l.X1, l.Y1).
		LineTo(l.X2, l.Y2).
		Stroke(s.Color, s.Width, s.Opacity).
		Ops())
}

// Text returns a free-standing label.
func (p *Painter) Text(t *models.Text) Drawable {
	color, size := p.style.Text.Color, p.style.Text.FontSize
	if t.Color != "" {
		color = t.Color
	}
	if t.Size > 0 {
		size = t.Size
	}
	return p.surface.NewText(TextSpec{
		X:       t.X,
		Y:       t.Y,
		Content: t.Content,
		Color:   color,
		Size:    size,
		Angle:   t.Angle,
		AnchorX: 0.5,
		AnchorY: 0.5,
	})
}

// Aggregate returns an instance of one path containing every park
// rectangle. The template is built once per key and reused on re-entry.
func (p *Painter) Aggregate(key string, parks []*models.Park) Group {
	return p.templates.Instance(key, func() []PathOp {
		return AggregateTexture(parks, p.style)
	}, 0, 0, 0)
}

// AggregateTexture draws all park outlines as one path in absolute screen
// coordinates.
func AggregateTexture(parks []*models.Park, style *models.StyleSheet) []PathOp {
	b := NewPathBuilder()
	for _, park := range parks {
		m := Placement(park.X, park.Y, park.Rotate)
		hl, hw := park.L/2, park.W/2
		corners := [4][2]float64{{-hl, -hw}, {hl, -hw}, {hl, hw}, {-hl, hw}}
		for i, c := range corners {
			x, y := m.TransformPoint(c[0], c[1])
			if i == 0 {
				b.MoveTo(x, y)
			} else {
				b.LineTo(x, y)
			}
		}
		b.Close()
	}
	a := style.Aggregate
	return b.Fill(a.Color, a.Opacity*style.Park.FillOpacity).
		Stroke(a.Color, a.Width, a.Opacity).
		Ops()
}
