package engine

import (
	"math"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/dhconnelly/rtreego"
	"go.uber.org/zap"
)

const (
	// rtreego rejects rectangles with a zero-length side.
	minExtent = 1e-6
	// Slack for points on a park's edge.
	hitEpsilon = 1e-9
)

// parkEntry is a park's axis-aligned bounding box in the hit-test index.
type parkEntry struct {
	key  string
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (p *parkEntry) Bounds() rtreego.Rect {
	return p.bbox
}

// parkBounds returns the bounding box of the rotated park rectangle. The
// length axis is the park's local X.
func parkBounds(p *models.Park) (rtreego.Rect, error) {
	sin, cos := math.Sincos(p.Rotate)
	hx := (math.Abs(p.L*cos) + math.Abs(p.W*sin)) / 2
	hy := (math.Abs(p.L*sin) + math.Abs(p.W*cos)) / 2
	return rtreego.NewRect(
		rtreego.Point{p.X - hx, p.Y - hy},
		[]float64{math.Max(2*hx, minExtent), math.Max(2*hy, minExtent)},
	)
}

// indexParks rebuilds the hit-test index over every park.
func (e *MapEngine) indexParks() {
	e.parkTree = rtreego.NewTree(2, 25, 50)
	e.parkEntries = make(map[string]*parkEntry, len(e.tables.Parks))
	for key, p := range e.tables.Parks {
		e.insertPark(key, p)
	}
}

func (e *MapEngine) insertPark(key string, p *models.Park) {
	bbox, err := parkBounds(p)
	if err != nil {
		e.logger.Debug("park not indexed", zap.String("park", key), zap.Error(err))
		return
	}
	entry := &parkEntry{key: key, bbox: bbox}
	e.parkEntries[key] = entry
	e.parkTree.Insert(entry)
}

// reindexPark moves a relocated park in the index.
func (e *MapEngine) reindexPark(key string, p *models.Park) {
	if old, ok := e.parkEntries[key]; ok {
		e.parkTree.Delete(old)
		delete(e.parkEntries, key)
	}
	e.insertPark(key, p)
}

// ParksAt returns the displayed ids of the visible parks whose rectangle
// contains the screen point (x, y).
func (e *MapEngine) ParksAt(x, y float64) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return nil, err
	}

	probe, err := rtreego.NewRect(rtreego.Point{x, y}, []float64{minExtent, minExtent})
	if err != nil {
		return nil, err
	}
	hits := models.NewIDSet()
	for _, s := range e.parkTree.SearchIntersect(probe) {
		entry := s.(*parkEntry)
		if e.visible.Has(entry.key) && containsPoint(e.tables.Parks[entry.key], x, y) {
			hits.Add(entry.key)
		}
	}
	return e.displayIDs(hits), nil
}

// containsPoint tests (x, y) against the rotated park rectangle.
func containsPoint(p *models.Park, x, y float64) bool {
	if p == nil {
		return false
	}
	sin, cos := math.Sincos(p.Rotate)
	dx, dy := x-p.X, y-p.Y
	lx := dx*cos + dy*sin
	ly := -dx*sin + dy*cos
	return math.Abs(lx) <= p.L/2+hitEpsilon && math.Abs(ly) <= p.W/2+hitEpsilon
}
