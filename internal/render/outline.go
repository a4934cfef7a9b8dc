package render

import (
	"fmt"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/agv-mapview/backend/internal/models"
)

const handleKey = "outline-handle"

// OutlineEditor draws an editable outline: the rectangle body, four
// edge-midpoint handles and four corner handles with coordinate labels.
// Edge changes reposition these nine elements in place; nothing is
// rebuilt.
type OutlineEditor struct {
	surface   Surface
	templates *TemplateCache
	frame     geometry.Frame
	style     models.Stroke
	outline   *models.Outline

	body    Drawable
	edges   [4]Group
	corners [4]Group
	labels  [4]Drawable

	repositions int
}

// NewOutlineEditor builds the editor's drawables on LayerOutline and
// subscribes to o.
func NewOutlineEditor(s Surface, templates *TemplateCache, frame geometry.Frame, style models.Stroke, o *models.Outline) *OutlineEditor {
	e := &OutlineEditor{
		surface:   s,
		templates: templates,
		frame:     frame,
		style:     style,
		outline:   o,
	}
	e.body = s.NewPath(e.bodyOps())
	s.Attach(LayerOutline, e.body)

	handle := func() []PathOp {
		return NewPathBuilder().
			Rect(0, 0, 8, 8).
			Fill(style.Color, 1).
			Ops()
	}
	for i := range e.edges {
		e.edges[i] = templates.Instance(handleKey, handle, 0, 0, 0)
		s.Attach(LayerOutline, e.edges[i])
	}
	for i := range e.corners {
		e.corners[i] = templates.Instance(handleKey, handle, 0, 0, 0)
		e.labels[i] = s.NewText(TextSpec{
			Y:       -12,
			Color:   style.Color,
			Size:    10,
			AnchorX: 0.5,
			AnchorY: 1,
		})
		e.corners[i].Add(e.labels[i])
		s.Attach(LayerOutline, e.corners[i])
	}
	e.place()
	o.Observe(func(*models.Outline, models.Edge) { e.reposition() })
	return e
}

// Outline returns the edited outline.
func (e *OutlineEditor) Outline() *models.Outline { return e.outline }

// Repositions returns how many times the elements were repositioned.
func (e *OutlineEditor) Repositions() int { return e.repositions }

// Close detaches and disposes the editor's drawables.
func (e *OutlineEditor) Close() {
	e.surface.Detach(LayerOutline, e.body)
	e.surface.Dispose(e.body)
	for _, g := range e.edges {
		e.surface.Detach(LayerOutline, g)
		e.surface.Dispose(g)
	}
	for i, g := range e.corners {
		e.surface.Detach(LayerOutline, g)
		e.surface.Dispose(g)
		e.surface.Dispose(e.labels[i])
	}
}

func (e *OutlineEditor) bodyOps() []PathOp {
	o := e.outline
	return NewPathBuilder().
		Rect(o.Left()+o.Width()/2, o.Top()+o.Height()/2, o.Width(), o.Height()).
		Stroke(e.style.Color, e.style.Width, e.style.Opacity).
		Ops()
}

func (e *OutlineEditor) reposition() {
	e.surface.UpdatePath(e.body, e.bodyOps())
	e.place()
	e.repositions++
}

func (e *OutlineEditor) place() {
	o := e.outline
	cx, cy := o.Left()+o.Width()/2, o.Top()+o.Height()/2

	e.edges[0].SetTransform(o.Left(), cy, 0)
	e.edges[1].SetTransform(o.Right(), cy, 0)
	e.edges[2].SetTransform(cx, o.Top(), 0)
	e.edges[3].SetTransform(cx, o.Bottom(), 0)

	corners := [4][2]float64{
		{o.Left(), o.Top()},
		{o.Right(), o.Top()},
		{o.Right(), o.Bottom()},
		{o.Left(), o.Bottom()},
	}
	for i, c := range corners {
		e.corners[i].SetTransform(c[0], c[1], 0)
		e.surface.UpdateText(e.labels[i], fmt.Sprintf("%g, %g",
			e.frame.ScreenToAgvX(c[0]), e.frame.ScreenToAgvY(c[1])))
	}
}
