package engine

import (
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/parser"
	"github.com/agv-mapview/backend/internal/render"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// EntityKind names an entity category handled by the engine.
type EntityKind string

const (
	KindParks  EntityKind = "parks"
	KindPaths  EntityKind = "paths"
	KindPoints EntityKind = "points"
	KindMarks  EntityKind = "marks"
	KindLines  EntityKind = "lines"
	KindTexts  EntityKind = "texts"
)

// Kinds lists the entity kinds in ingest and render order. Points are
// derived from paths, so they come after them.
var Kinds = []EntityKind{KindParks, KindPaths, KindPoints, KindMarks, KindLines, KindTexts}

// kindOps is the per-kind function triple.
type kindOps struct {
	category render.Category
	// ingest adds the kind's raw records to t; nil for derived kinds.
	ingest    func(in *parser.Ingester, t *models.MapTables, raw *models.RawMap) error
	render    func(e *MapEngine)
	lodSwitch func(e *MapEngine, simplified bool)
}

var dispatch = map[EntityKind]kindOps{
	KindParks: {
		category: render.CategoryParks,
		ingest: func(in *parser.Ingester, t *models.MapTables, raw *models.RawMap) error {
			return ingestEach(t, raw.Parks, in.AddPark)
		},
		render:    (*MapEngine).renderParks,
		lodSwitch: (*MapEngine).switchParks,
	},
	KindPaths: {
		category: render.CategoryPaths,
		ingest: func(in *parser.Ingester, t *models.MapTables, raw *models.RawMap) error {
			return ingestEach(t, raw.Paths, in.AddPath)
		},
		render:    (*MapEngine).renderPaths,
		lodSwitch: layerSwitch(render.LayerPaths, render.LayerOverlay),
	},
	KindPoints: {
		category:  render.CategoryPoints,
		render:    (*MapEngine).renderPoints,
		lodSwitch: layerSwitch(render.LayerPoints),
	},
	KindMarks: {
		category: render.CategoryMarks,
		ingest: func(in *parser.Ingester, t *models.MapTables, raw *models.RawMap) error {
			return ingestEach(t, raw.Marks, in.AddMark)
		},
		render:    (*MapEngine).renderMarks,
		lodSwitch: layerSwitch(render.LayerMarks),
	},
	KindLines: {
		category: render.CategoryLines,
		ingest: func(in *parser.Ingester, t *models.MapTables, raw *models.RawMap) error {
			return ingestEach(t, raw.Lines, in.AddLine)
		},
		render:    (*MapEngine).renderLines,
		lodSwitch: layerSwitch(render.LayerLines),
	},
	KindTexts: {
		category: render.CategoryTexts,
		ingest: func(in *parser.Ingester, t *models.MapTables, raw *models.RawMap) error {
			return ingestEach(t, raw.Texts, in.AddText)
		},
		render:    (*MapEngine).renderTexts,
		lodSwitch: layerSwitch(render.LayerTexts),
	},
}

func ingestEach(t *models.MapTables, records []models.RawRecord, add func(*models.MapTables, models.RawRecord) error) error {
	var errs error
	for _, rec := range records {
		errs = multierr.Append(errs, add(t, rec))
	}
	return errs
}

// layerSwitch hides layers while the category is simplified.
func layerSwitch(layers ...render.Layer) func(e *MapEngine, simplified bool) {
	return func(e *MapEngine, simplified bool) {
		for _, l := range layers {
			e.scene.SetLayerVisible(l, !simplified)
		}
	}
}

// ingest runs every kind's ingest function and returns the tables with the
// number of rejected records.
func (e *MapEngine) ingest(raw *models.RawMap) (*models.MapTables, int) {
	t := models.NewMapTables()
	var errs error
	for _, kind := range Kinds {
		if fn := dispatch[kind].ingest; fn != nil {
			errs = multierr.Append(errs, fn(e.ingester, t, raw))
		}
	}
	e.ingester.Finish(t)
	skipped := len(multierr.Errors(errs))
	if skipped > 0 {
		e.logger.Warn("skipped malformed records",
			zap.Int("count", skipped),
			zap.Int("total", raw.Len()),
			zap.Error(errs))
	}
	return t, skipped
}
