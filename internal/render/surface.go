// Package render turns map entity tables into drawables on a Surface:
// shared shape templates, per-category render state reconciled by set
// diffs, zoom-driven level of detail and the outline editor.
package render

// Layer names a z-ordered drawing layer of a surface.
type Layer string

const (
	LayerLines      Layer = "lines"
	LayerMarks      Layer = "marks"
	LayerPaths      Layer = "paths"
	LayerOverlay    Layer = "overlay"
	LayerPoints     Layer = "points"
	LayerAggregate  Layer = "aggregate"
	LayerParks      Layer = "parks"
	LayerStock      Layer = "stock"
	LayerSelection  Layer = "selection"
	LayerCandidates Layer = "candidates"
	LayerLabels     Layer = "labels"
	LayerTags       Layer = "tags"
	LayerTexts      Layer = "texts"
	LayerOutline    Layer = "outline"
)

// Layers lists every layer back to front.
var Layers = []Layer{
	LayerLines,
	LayerMarks,
	LayerPaths,
	LayerOverlay,
	LayerPoints,
	LayerAggregate,
	LayerParks,
	LayerStock,
	LayerSelection,
	LayerCandidates,
	LayerLabels,
	LayerTags,
	LayerTexts,
	LayerOutline,
}

// Drawable is an opaque handle to a surface object.
type Drawable interface {
	ID() string
}

// Group is a positionable, rotatable container. Children are shared, not
// owned: disposing a group never disposes its children.
type Group interface {
	Drawable
	Add(child Drawable)
	SetTransform(x, y, rotation float64)
	Transform() (x, y, rotation float64)
}

// TextSpec describes a text label. Angle is in screen degrees; AnchorX and
// AnchorY place the text relative to (X, Y), 0.5 centring it.
type TextSpec struct {
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	Content string  `json:"content" msgpack:"content"`
	Color   string  `json:"color" msgpack:"color"`
	Size    float64 `json:"size" msgpack:"size"`
	Angle   float64 `json:"angle,omitempty" msgpack:"angle,omitempty"`
	AnchorX float64 `json:"anchorX" msgpack:"anchorX"`
	AnchorY float64 `json:"anchorY" msgpack:"anchorY"`
}

// Surface is the drawing capability the renderer consumes. Paths, texts
// and groups are created detached; Attach places a drawable on a layer.
type Surface interface {
	NewPath(ops []PathOp) Drawable
	NewText(spec TextSpec) Drawable
	NewGroup() Group

	// UpdatePath and UpdateText mutate an unshared drawable in place.
	UpdatePath(d Drawable, ops []PathOp)
	UpdateText(d Drawable, content string)

	Attach(layer Layer, d Drawable)
	Detach(layer Layer, d Drawable)
	Dispose(d Drawable)

	SetLayerVisible(layer Layer, visible bool)
	LayerVisible(layer Layer) bool
}
