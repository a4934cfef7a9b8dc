package engine

import (
	"fmt"
	"strconv"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/parser"
	"github.com/agv-mapview/backend/internal/render"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

func (e *MapEngine) renderPaths() {
	all := models.NewIDSet(lo.Keys(e.tables.Paths)...)
	e.state.Paths.Reconcile(all, e.pathResolver(""))
	for _, k := range render.OverlayKinds {
		e.state.Overlays[k].Reconcile(e.overlays[k], e.pathResolver(k))
	}
}

func (e *MapEngine) pathResolver(overlay render.OverlayKind) render.Resolver {
	return func(key string) (render.Drawable, bool) {
		p, ok := e.tables.Paths[key]
		if !ok {
			return nil, false
		}
		return e.painter.Path(p, overlay), true
	}
}

func (e *MapEngine) renderPoints() {
	all := models.NewIDSet(lo.Keys(e.tables.Points)...)
	e.state.Points.Reconcile(all, e.pointResolver)
}

func (e *MapEngine) pointResolver(key string) (render.Drawable, bool) {
	pt, ok := e.tables.Points[key]
	if !ok {
		return nil, false
	}
	return e.painter.Point(pt, e.pointFactor), true
}

// rerenderPoints redraws every junction dot at the current point factor.
// It runs on the frame scheduler.
func (e *MapEngine) rerenderPoints() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tables == nil {
		return
	}
	e.state.Points.Clear()
	e.renderPoints()
}

func (e *MapEngine) renderMarks() {
	e.state.Marks.Reconcile(models.NewIDSet(lo.Keys(e.marks)...), func(key string) (render.Drawable, bool) {
		m, ok := e.marks[key]
		if !ok {
			return nil, false
		}
		return e.painter.Mark(m), true
	})
}

func (e *MapEngine) renderLines() {
	e.state.Lines.Reconcile(models.NewIDSet(lo.Keys(e.lines)...), func(key string) (render.Drawable, bool) {
		l, ok := e.lines[key]
		if !ok {
			return nil, false
		}
		return e.painter.Line(l), true
	})
}

func (e *MapEngine) renderTexts() {
	e.state.Texts.Reconcile(models.NewIDSet(lo.Keys(e.texts)...), func(key string) (render.Drawable, bool) {
		t, ok := e.texts[key]
		if !ok {
			return nil, false
		}
		return e.painter.Text(t), true
	})
}

// SetPathOverlay replaces the paths highlighted in one overlay category.
func (e *MapEngine) SetPathOverlay(kind render.OverlayKind, pathIDs []string) (Change, error) {
	if !kind.Valid() {
		return Change{}, fmt.Errorf("%w: %q", ErrInvalidOverlay, kind)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	target := models.NewIDSet()
	var unknown []string
	for _, id := range pathIDs {
		if _, ok := e.tables.Paths[id]; ok {
			target.Add(id)
		} else {
			unknown = append(unknown, id)
		}
	}
	e.overlays[kind] = target
	delta := e.state.Overlays[kind].Reconcile(target, e.pathResolver(kind))
	return Change{Delta: delta, Unknown: unknown}, nil
}

// PathOverlay returns the highlighted paths of kind.
func (e *MapEngine) PathOverlay(kind render.OverlayKind) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	set, ok := e.overlays[kind]
	if !ok {
		return nil
	}
	return set.Sorted()
}

// ShowTravel parses an AGV travel string and highlights, in the move
// overlay, the paths whose endpoints match its segments in either
// direction. Segments without a matching path are reported as unknown.
func (e *MapEngine) ShowTravel(travel string) (Change, error) {
	segments := parser.ParseTravel(travel, e.logger)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	frame := e.opts.Frame
	screen := func(p parser.TravelPose) (float64, float64) {
		return geometry.Round(frame.AgvToScreenX(p.X), frame.Precision),
			geometry.Round(frame.AgvToScreenY(p.Y), frame.Precision)
	}

	target := models.NewIDSet()
	var unknown []string
	for i, seg := range segments {
		x1, y1 := screen(seg.Start)
		x2, y2 := screen(seg.End)
		ids, ok := e.byEndpoint[models.EndpointKey(x1, y1, x2, y2)]
		if !ok {
			unknown = append(unknown, strconv.Itoa(i))
			continue
		}
		for _, id := range ids {
			target.Add(id)
		}
	}
	if len(unknown) > 0 {
		e.logger.Debug("travel segments without a path",
			zap.Int("segments", len(segments)),
			zap.Strings("unmatched", unknown))
	}
	e.overlays[render.OverlayMove] = target
	delta := e.state.Overlays[render.OverlayMove].Reconcile(target, e.pathResolver(render.OverlayMove))
	return Change{Delta: delta, Unknown: unknown}, nil
}
