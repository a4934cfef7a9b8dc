package engine

import (
	"io"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/render"
	"github.com/agv-mapview/backend/internal/snapshot"
)

// ScaleResult reports the effect of a zoom change.
type ScaleResult struct {
	Scale       float64             `json:"scale"`
	Transitions []render.Transition `json:"transitions,omitempty"`
	PointFactor float64             `json:"pointFactor"`
	// PointsDeferred is set when point glyphs will be redrawn on the next
	// frame.
	PointsDeferred bool `json:"pointsDeferred"`
}

// SetScale updates the view scale. Categories switch detail level only
// when the scale crosses the critical threshold. A change of point glyph
// size is deferred to the next frame.
func (e *MapEngine) SetScale(scale float64) ScaleResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := ScaleResult{Transitions: e.lod.SetScale(scale)}
	res.Scale = e.lod.Scale()
	factor := e.lod.PointFactor()
	res.PointFactor = factor
	if factor != e.pointFactor {
		e.pointFactor = factor
		if e.tables != nil {
			e.scheduler.Defer("points", e.rerenderPoints)
			res.PointsDeferred = true
		}
	}
	return res
}

// Scale returns the current view scale.
func (e *MapEngine) Scale() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lod.Scale()
}

// FlushFrame runs deferred frame work now.
func (e *MapEngine) FlushFrame() {
	e.scheduler.Flush()
}

// DrawCommands compiles the visible scene.
func (e *MapEngine) DrawCommands() []render.DrawCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.CompileDrawCommands()
}

// RenderPNG rasterises the visible scene.
func (e *MapEngine) RenderPNG(w io.Writer, opts render.RasterOptions) error {
	if opts.Background == "" {
		opts.Background = e.opts.Style.Background
	}
	return render.NewRasterizer(opts).WritePNG(w, e.DrawCommands())
}

// Subscribe registers fn for scene events. Listeners run synchronously
// inside engine operations and must not call back into the engine.
func (e *MapEngine) Subscribe(fn func(render.Event)) func() {
	return e.scene.Subscribe(fn)
}

// Stats summarises the engine state.
type Stats struct {
	Loaded         bool                     `json:"loaded"`
	Hash           string                   `json:"hash,omitempty"`
	CacheHit       bool                     `json:"cacheHit"`
	Floor          int                      `json:"floor"`
	Scale          float64                  `json:"scale"`
	PointFactor    float64                  `json:"pointFactor"`
	Simplified     map[render.Category]bool `json:"simplified"`
	Entities       map[string]int           `json:"entities,omitempty"`
	Visible        int                      `json:"visible"`
	Selected       int                      `json:"selected"`
	Templates      int                      `json:"templates"`
	TemplateBuilds int                      `json:"templateBuilds"`
	Tables         map[string]int           `json:"tables"`
	Scene          render.SceneStats        `json:"scene"`
	Filter         Filter                   `json:"filter"`
	Cache          *snapshot.Stats          `json:"cache,omitempty"`
	PendingFrame   int                      `json:"pendingFrame"`
}

// Stats returns a snapshot of the engine counters.
func (e *MapEngine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Stats{
		Loaded:         e.tables != nil,
		Hash:           e.result.Hash,
		CacheHit:       e.result.CacheHit,
		Floor:          e.floor,
		Scale:          e.lod.Scale(),
		PointFactor:    e.pointFactor,
		Simplified:     e.lod.SimplifiedAll(),
		Visible:        len(e.visible),
		Selected:       len(e.selected),
		Templates:      e.templates.Len(),
		TemplateBuilds: e.templates.Builds(),
		Tables:         e.state.Sizes(),
		Scene:          e.scene.Stats(),
		Filter:         e.filter,
		PendingFrame:   e.scheduler.Pending(),
	}
	if e.tables != nil {
		st.Entities = e.tables.Counts()
	}
	if e.cache != nil {
		cs := e.cache.Stats()
		st.Cache = &cs
	}
	return st
}

// VisibleParks returns the visible parks as ids of the current floor.
func (e *MapEngine) VisibleParks() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tables == nil {
		return nil
	}
	return e.displayIDs(e.visible)
}

// Park returns the park shown under a displayed id.
func (e *MapEngine) Park(id int) (*models.Park, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tables == nil {
		return nil, false
	}
	key, ok := e.resolveID(id)
	if !ok {
		return nil, false
	}
	p := *e.tables.Parks[key]
	return &p, true
}
