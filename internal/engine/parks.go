package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/render"
	"github.com/zeebo/xxh3"
)

func (e *MapEngine) renderParks() {
	e.renderParksDelta()
}

// renderParksDelta reconciles park bodies, labels and every park overlay
// against the visible set. It returns the label delta, which tracks the
// visible set regardless of the level of detail.
func (e *MapEngine) renderParksDelta() render.Delta {
	e.renderParkBodies(e.lod.Simplified(render.CategoryParks))
	delta := e.state.Labels.Reconcile(e.visible, e.labelResolver)
	e.renderParkOverlays()
	return delta
}

func (e *MapEngine) switchParks(simplified bool) {
	e.scene.SetLayerVisible(render.LayerLabels, !simplified)
	if e.tables == nil {
		return
	}
	e.renderParkBodies(simplified)
}

// renderParkBodies draws parks as instances, or as a single aggregate path
// while simplified.
func (e *MapEngine) renderParkBodies(simplified bool) {
	if simplified {
		e.state.Parks.Clear()
		e.showAggregate()
		return
	}
	e.hideAggregate()
	e.state.Parks.Reconcile(e.visible, e.parkResolver(false))
}

func (e *MapEngine) renderParkOverlays() {
	e.state.Selected.Reconcile(e.selected.Intersect(e.visible), e.parkResolver(true))
	e.state.Candidates.Reconcile(e.candidates.Intersect(e.visible), e.candidateResolver)
	e.state.Stock.Reconcile(e.stock.Intersect(e.visible), e.stockResolver)
	e.reconcileTags()
	e.state.Status.Reconcile(e.statusTarget(), e.statusResolver)
}

// showAggregate attaches the aggregate of the visible parks. The template
// is keyed by floor, geometry revision and visible set. Only the latest one
// is cached: re-entering the same view reuses it, any other view replaces it.
func (e *MapEngine) showAggregate() {
	keys := e.visible.Sorted()
	key := "aggregate|" + strconv.Itoa(e.floor) + "|" + strconv.Itoa(e.geomRev) + "|" +
		strconv.FormatUint(xxh3.HashString(strings.Join(keys, "\x00")), 16)
	if e.aggregate != nil && e.aggregateKey == key {
		return
	}
	e.hideAggregate()
	if e.aggregateTpl != "" && e.aggregateTpl != key {
		e.templates.Evict(e.aggregateTpl)
	}
	parks := make([]*models.Park, 0, len(keys))
	for _, k := range keys {
		parks = append(parks, e.tables.Parks[k])
	}
	e.aggregate = e.painter.Aggregate(key, parks)
	e.aggregateKey = key
	e.aggregateTpl = key
	e.scene.Attach(render.LayerAggregate, e.aggregate)
}

func (e *MapEngine) hideAggregate() {
	if e.aggregate == nil {
		return
	}
	e.scene.Detach(render.LayerAggregate, e.aggregate)
	e.scene.Dispose(e.aggregate)
	e.aggregate = nil
	e.aggregateKey = ""
}

func (e *MapEngine) parkResolver(selected bool) render.Resolver {
	return func(key string) (render.Drawable, bool) {
		p, ok := e.tables.Parks[key]
		if !ok {
			return nil, false
		}
		return e.painter.Park(p, selected), true
	}
}

func (e *MapEngine) labelResolver(key string) (render.Drawable, bool) {
	p, ok := e.tables.Parks[key]
	if !ok {
		return nil, false
	}
	return e.painter.Label(p, e.labelText(p)), true
}

// labelText is the park id shown on the current floor.
func (e *MapEngine) labelText(p *models.Park) string {
	return strconv.Itoa(models.DisplayID(p.ID, e.floor, e.opts.FloorCapacity))
}

func (e *MapEngine) candidateResolver(key string) (render.Drawable, bool) {
	p, ok := e.tables.Parks[key]
	if !ok {
		return nil, false
	}
	return e.painter.Candidate(p), true
}

func (e *MapEngine) stockResolver(key string) (render.Drawable, bool) {
	p, ok := e.tables.Parks[key]
	if !ok {
		return nil, false
	}
	return e.painter.Stock(p), true
}

func (e *MapEngine) tagResolver(key string) (render.Drawable, bool) {
	p, ok := e.tables.Parks[key]
	content, tagged := e.tags[key]
	if !ok || !tagged {
		return nil, false
	}
	return e.painter.Tag(p, content), true
}

// reconcileTags attaches tags of visible parks and rewrites the text of
// tags that stayed attached but changed content.
func (e *MapEngine) reconcileTags() render.Delta {
	target := models.NewIDSet()
	for key := range e.tags {
		if e.visible.Has(key) {
			target.Add(key)
		}
	}
	delta := e.state.Tags.Reconcile(target, e.tagResolver)
	added := models.NewIDSet(delta.Added...)
	e.state.Tags.Each(func(key string, d render.Drawable) {
		if !added.Has(key) {
			e.scene.UpdateText(d, e.tags[key])
		}
	})
	return delta
}

func statusEntry(key string, s models.ParkStatus) string {
	return key + "|" + string(s)
}

func (e *MapEngine) statusTarget() models.IDSet {
	target := models.NewIDSet()
	for key, s := range e.statuses {
		if e.visible.Has(key) {
			target.Add(statusEntry(key, s))
		}
	}
	return target
}

func (e *MapEngine) statusResolver(entry string) (render.Drawable, bool) {
	i := strings.LastIndexByte(entry, '|')
	if i < 0 {
		return nil, false
	}
	p, ok := e.tables.Parks[entry[:i]]
	if !ok {
		return nil, false
	}
	return e.painter.Status(p, models.ParkStatus(entry[i+1:])), true
}

// resolveID maps a displayed id to the park key of its base entity. The
// id must address a floor the park exists on.
func (e *MapEngine) resolveID(id int) (string, bool) {
	capacity := e.opts.FloorCapacity
	p, ok := e.tables.ParkForID(models.BaseID(id, capacity))
	if !ok || !p.OnLayer(models.LayerOf(id, capacity)) {
		return "", false
	}
	return p.ParkID, true
}

func (e *MapEngine) resolveIDs(ids []int) (models.IDSet, []string) {
	keys := models.NewIDSet()
	var unknown []string
	for _, id := range ids {
		if key, ok := e.resolveID(id); ok {
			keys.Add(key)
		} else {
			unknown = append(unknown, strconv.Itoa(id))
		}
	}
	return keys, unknown
}

// displayIDs returns the ids of keys as shown on the current floor.
func (e *MapEngine) displayIDs(keys models.IDSet) []int {
	ids := make([]int, 0, len(keys))
	for key := range keys {
		if p, ok := e.tables.Parks[key]; ok {
			ids = append(ids, models.DisplayID(p.ID, e.floor, e.opts.FloorCapacity))
		}
	}
	sort.Ints(ids)
	return ids
}
