package engine

import (
	"fmt"
	"strconv"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/render"
)

// Change reports what an operation attached and detached, the parks it
// relocated and the requested ids that did not resolve.
type Change struct {
	render.Delta
	Moved   []string `json:"moved,omitempty"`
	Unknown []string `json:"unknown,omitempty"`
}

// SelectParks makes ids the selection. Parks kept selected are not
// touched; only the difference is drawn or removed.
func (e *MapEngine) SelectParks(ids []int) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	keys, unknown := e.resolveIDs(ids)
	e.selected = keys
	delta := e.state.Selected.Reconcile(keys.Intersect(e.visible), e.parkResolver(true))
	return Change{Delta: delta, Unknown: unknown}, nil
}

// SelectPark adds one park to the selection.
func (e *MapEngine) SelectPark(id int) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	key, ok := e.resolveID(id)
	if !ok {
		return Change{Unknown: []string{strconv.Itoa(id)}}, nil
	}
	e.selected.Add(key)
	if !e.visible.Has(key) {
		return Change{}, nil
	}
	return Change{Delta: e.state.Selected.Add(key, e.parkResolver(true))}, nil
}

// DeselectPark removes one park from the selection.
func (e *MapEngine) DeselectPark(id int) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	key, ok := e.resolveID(id)
	if !ok {
		return Change{Unknown: []string{strconv.Itoa(id)}}, nil
	}
	delete(e.selected, key)
	return Change{Delta: e.state.Selected.Remove(key)}, nil
}

// ClearSelection deselects every park.
func (e *MapEngine) ClearSelection() (Change, error) {
	return e.SelectParks(nil)
}

// Selection returns the selected parks as ids of the current floor.
func (e *MapEngine) Selection() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tables == nil {
		return nil
	}
	return e.displayIDs(e.selected)
}

// MarkCandidates highlights ids as candidate targets.
func (e *MapEngine) MarkCandidates(ids []int) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	keys, unknown := e.resolveIDs(ids)
	e.candidates = keys
	delta := e.state.Candidates.Reconcile(keys.Intersect(e.visible), e.candidateResolver)
	return Change{Delta: delta, Unknown: unknown}, nil
}

// SetStock marks ids as occupied.
func (e *MapEngine) SetStock(ids []int) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	keys, unknown := e.resolveIDs(ids)
	e.stock = keys
	delta := e.state.Stock.Reconcile(keys.Intersect(e.visible), e.stockResolver)
	return Change{Delta: delta, Unknown: unknown}, nil
}

// SetTags replaces the numeric tags shown under parks.
func (e *MapEngine) SetTags(tags map[int]string) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	next := make(map[string]string, len(tags))
	var unknown []string
	for id, content := range tags {
		key, ok := e.resolveID(id)
		if !ok {
			unknown = append(unknown, strconv.Itoa(id))
			continue
		}
		next[key] = content
	}
	e.tags = next
	return Change{Delta: e.reconcileTags(), Unknown: unknown}, nil
}

// SetStatusTags replaces the inferred-status tags. A park whose status
// changed loses its old tag and gains the new one.
func (e *MapEngine) SetStatusTags(statuses map[int]models.ParkStatus) (Change, error) {
	for id, s := range statuses {
		if !s.Valid() {
			return Change{}, fmt.Errorf("park %d: %w: %q", id, ErrInvalidStatus, s)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	next := make(map[string]models.ParkStatus, len(statuses))
	var unknown []string
	for id, s := range statuses {
		key, ok := e.resolveID(id)
		if !ok {
			unknown = append(unknown, strconv.Itoa(id))
			continue
		}
		next[key] = s
	}
	e.statuses = next
	delta := e.state.Status.Reconcile(e.statusTarget(), e.statusResolver)
	return Change{Delta: delta, Unknown: unknown}, nil
}

// MoveTruck relocates every park carried by the truck. Instances are
// re-placed through their transforms; templates are never rebuilt.
// Text drawables anchored to the parks are replaced.
func (e *MapEngine) MoveTruck(pos models.TruckPosition) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}

	frame := e.opts.Frame
	x := geometry.Round(frame.AgvToScreenX(pos.X), frame.Precision)
	y := geometry.Round(frame.AgvToScreenY(pos.Y), frame.Precision)
	rot := geometry.ThetaToRotate(pos.Theta)

	var moved []string
	for _, key := range e.tables.Set(models.SetParkTruck).Sorted() {
		p := e.tables.Parks[key]
		if p == nil || p.TruckID != pos.TruckID {
			continue
		}
		p.X, p.Y, p.Rotate = x, y, rot
		p.Pi = geometry.ThetaToPi(pos.Theta)
		p.UpdateAnchors()
		e.reindexPark(key, p)
		moved = append(moved, key)

		for _, t := range []*render.StateTable{e.state.Parks, e.state.Selected, e.state.Candidates, e.state.Stock} {
			if d, ok := t.Get(key); ok {
				if g, ok := d.(render.Group); ok {
					g.SetTransform(p.X, p.Y, p.Rotate)
				}
			}
		}
		replace(e.state.Labels, key, e.labelResolver)
		replace(e.state.Tags, key, e.tagResolver)
		if s, ok := e.statuses[key]; ok {
			replace(e.state.Status, statusEntry(key, s), e.statusResolver)
		}
	}
	if len(moved) == 0 {
		return Change{Unknown: []string{pos.TruckID}}, nil
	}
	e.geomRev++
	if e.lod.Simplified(render.CategoryParks) {
		e.showAggregate()
	}
	return Change{Moved: moved}, nil
}

// replace rebuilds the drawable for key if the table holds one.
func replace(t *render.StateTable, key string, resolve render.Resolver) {
	if !t.Has(key) {
		return
	}
	t.Remove(key)
	t.Add(key, resolve)
}
