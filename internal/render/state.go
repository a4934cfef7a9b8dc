package render

import (
	"sort"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/samber/lo"
)

// Resolver produces the drawable for a key entering a table. It returns
// false when the key has no source data; such keys are skipped.
type Resolver func(key string) (Drawable, bool)

// Delta reports the keys a reconcile touched.
type Delta struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Empty reports whether nothing changed.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Merge appends other's keys to d.
func (d Delta) Merge(other Delta) Delta {
	d.Added = append(d.Added, other.Added...)
	d.Removed = append(d.Removed, other.Removed...)
	return d
}

// StateTable tracks the drawables of one category currently attached to a
// layer, keyed by entity key.
type StateTable struct {
	name    string
	layer   Layer
	surface Surface
	items   map[string]Drawable

	attaches int
	detaches int
}

// NewStateTable creates an empty table attaching to layer.
func NewStateTable(name string, layer Layer, s Surface) *StateTable {
	return &StateTable{
		name:    name,
		layer:   layer,
		surface: s,
		items:   make(map[string]Drawable),
	}
}

func (t *StateTable) Name() string { return t.name }
func (t *StateTable) Layer() Layer { return t.layer }
func (t *StateTable) Len() int     { return len(t.items) }

// Has reports whether key is attached.
func (t *StateTable) Has(key string) bool {
	_, ok := t.items[key]
	return ok
}

// Get returns the drawable attached for key.
func (t *StateTable) Get(key string) (Drawable, bool) {
	d, ok := t.items[key]
	return d, ok
}

// Keys returns the attached keys in ascending order.
func (t *StateTable) Keys() []string {
	keys := lo.Keys(t.items)
	sort.Strings(keys)
	return keys
}

// Each calls fn for every attached key and drawable.
func (t *StateTable) Each(fn func(key string, d Drawable)) {
	for k, d := range t.items {
		fn(k, d)
	}
}

// Counters returns the total attach and detach counts.
func (t *StateTable) Counters() (attaches, detaches int) {
	return t.attaches, t.detaches
}

// Reconcile brings the table to target, touching only the difference:
// keys not in target are detached and disposed, keys missing from the
// table are resolved and attached, and keys present in both are left
// alone.
func (t *StateTable) Reconcile(target models.IDSet, resolve Resolver) Delta {
	toRemove := lo.Filter(lo.Keys(t.items), func(k string, _ int) bool {
		return !target.Has(k)
	})
	toAdd := lo.Filter(lo.Keys(target), func(k string, _ int) bool {
		return !t.Has(k)
	})
	sort.Strings(toRemove)
	sort.Strings(toAdd)

	var delta Delta
	for _, key := range toRemove {
		t.remove(key)
		delta.Removed = append(delta.Removed, key)
	}
	for _, key := range toAdd {
		if t.add(key, resolve) {
			delta.Added = append(delta.Added, key)
		}
	}
	return delta
}

// Add attaches a single key. It is the one-key case of Reconcile with the
// current keys plus key as target.
func (t *StateTable) Add(key string, resolve Resolver) Delta {
	if t.Has(key) {
		return Delta{}
	}
	if !t.add(key, resolve) {
		return Delta{}
	}
	return Delta{Added: []string{key}}
}

// Remove detaches a single key. It is the one-key case of Reconcile with
// the current keys minus key as target.
func (t *StateTable) Remove(key string) Delta {
	if !t.Has(key) {
		return Delta{}
	}
	t.remove(key)
	return Delta{Removed: []string{key}}
}

// Clear detaches everything.
func (t *StateTable) Clear() Delta {
	return t.Reconcile(models.IDSet{}, nil)
}

func (t *StateTable) add(key string, resolve Resolver) bool {
	if resolve == nil {
		return false
	}
	d, ok := resolve(key)
	if !ok || d == nil {
		return false
	}
	t.surface.Attach(t.layer, d)
	t.items[key] = d
	t.attaches++
	return true
}

func (t *StateTable) remove(key string) {
	d := t.items[key]
	t.surface.Detach(t.layer, d)
	t.surface.Dispose(d)
	delete(t.items, key)
	t.detaches++
}

// OverlayKind names a path overlay category.
type OverlayKind string

const (
	OverlayMove    OverlayKind = "move"
	OverlayControl OverlayKind = "control"
	OverlayAssist  OverlayKind = "assist"
)

// OverlayKinds lists the overlay categories in draw order.
var OverlayKinds = []OverlayKind{OverlayMove, OverlayControl, OverlayAssist}

// Valid reports whether k is a known overlay.
func (k OverlayKind) Valid() bool {
	return lo.Contains(OverlayKinds, k)
}

// RenderState owns the per-category state tables of a map view.
type RenderState struct {
	// Parks holds one instance per visible park of the current floor.
	Parks *StateTable
	// Labels holds the floor-specific id label of each visible park.
	Labels     *StateTable
	Selected   *StateTable
	Candidates *StateTable
	Stock      *StateTable
	Tags       *StateTable
	Status     *StateTable

	Paths    *StateTable
	Points   *StateTable
	Overlays map[OverlayKind]*StateTable

	Marks *StateTable
	Lines *StateTable
	Texts *StateTable
}

// NewRenderState creates empty tables on s.
func NewRenderState(s Surface) *RenderState {
	rs := &RenderState{
		Parks:      NewStateTable("parks", LayerParks, s),
		Labels:     NewStateTable("labels", LayerLabels, s),
		Selected:   NewStateTable("selected", LayerSelection, s),
		Candidates: NewStateTable("candidates", LayerCandidates, s),
		Stock:      NewStateTable("stock", LayerStock, s),
		Tags:       NewStateTable("tags", LayerTags, s),
		Status:     NewStateTable("status", LayerTags, s),
		Paths:      NewStateTable("paths", LayerPaths, s),
		Points:     NewStateTable("points", LayerPoints, s),
		Overlays:   make(map[OverlayKind]*StateTable, len(OverlayKinds)),
		Marks:      NewStateTable("marks", LayerMarks, s),
		Lines:      NewStateTable("lines", LayerLines, s),
		Texts:      NewStateTable("texts", LayerTexts, s),
	}
	for _, k := range OverlayKinds {
		rs.Overlays[k] = NewStateTable("overlay:"+string(k), LayerOverlay, s)
	}
	return rs
}

// Tables returns every table in a stable order.
func (rs *RenderState) Tables() []*StateTable {
	tables := []*StateTable{
		rs.Lines, rs.Marks, rs.Paths,
	}
	for _, k := range OverlayKinds {
		tables = append(tables, rs.Overlays[k])
	}
	return append(tables,
		rs.Points, rs.Parks, rs.Stock, rs.Selected, rs.Candidates,
		rs.Labels, rs.Tags, rs.Status, rs.Texts,
	)
}

// Sizes returns the number of attached drawables per table.
func (rs *RenderState) Sizes() map[string]int {
	out := make(map[string]int)
	for _, t := range rs.Tables() {
		out[t.Name()] = t.Len()
	}
	return out
}

// Clear detaches every table.
func (rs *RenderState) Clear() {
	for _, t := range rs.Tables() {
		t.Clear()
	}
}
