package engine

import (
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/render"
)

// OutlineState is the edited rectangle in screen units.
type OutlineState struct {
	Left        float64 `json:"left"`
	Right       float64 `json:"right"`
	Top         float64 `json:"top"`
	Bottom      float64 `json:"bottom"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Repositions int     `json:"repositions"`
}

// EditOutline starts editing a rectangle, replacing any current one.
func (e *MapEngine) EditOutline(left, top, right, bottom float64) OutlineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outline != nil {
		e.outline.Close()
	}
	o := models.NewOutline(left, top, right, bottom)
	e.outline = render.NewOutlineEditor(e.scene, e.outlineTemplates, e.opts.Frame, e.opts.Style.Outline, o)
	return e.outlineState()
}

// SetOutlineEdge moves one edge of the edited rectangle. It reports whether
// anything changed; writing the current value is a no-op.
func (e *MapEngine) SetOutlineEdge(edge models.Edge, v float64) (OutlineState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outline == nil {
		return OutlineState{}, false
	}
	changed := e.outline.Outline().SetEdge(edge, v)
	return e.outlineState(), changed
}

// Outline returns the edited rectangle, if any.
func (e *MapEngine) Outline() (OutlineState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outline == nil {
		return OutlineState{}, false
	}
	return e.outlineState(), true
}

// CloseOutline stops editing and removes the editor's drawables.
func (e *MapEngine) CloseOutline() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outline != nil {
		e.outline.Close()
		e.outline = nil
	}
}

func (e *MapEngine) outlineState() OutlineState {
	o := e.outline.Outline()
	return OutlineState{
		Left:        o.Left(),
		Right:       o.Right(),
		Top:         o.Top(),
		Bottom:      o.Bottom(),
		Width:       o.Width(),
		Height:      o.Height(),
		Repositions: e.outline.Repositions(),
	}
}
