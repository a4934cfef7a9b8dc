package engine

import (
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/render"
	"go.uber.org/zap"
)

// Filter narrows the parks shown on the current floor. Empty fields do not
// filter; non-empty fields are combined with AND, values within a field
// with OR.
type Filter struct {
	Types      []models.ParkType `json:"types,omitempty"`
	Modes      []models.ParkMode `json:"modes,omitempty"`
	Groups     []string          `json:"groups,omitempty"`
	TrucksOnly bool              `json:"trucksOnly,omitempty"`
}

// Empty reports whether the filter lets every park through.
func (f Filter) Empty() bool {
	return len(f.Types) == 0 && len(f.Modes) == 0 && len(f.Groups) == 0 && !f.TrucksOnly
}

// apply narrows parks through the classification sets of t.
func (f Filter) apply(t *models.MapTables, parks models.IDSet) models.IDSet {
	if len(f.Types) > 0 {
		parks = parks.Intersect(union(t, len(f.Types), func(i int) string {
			return models.ParkTypeSet(f.Types[i])
		}))
	}
	if len(f.Modes) > 0 {
		parks = parks.Intersect(union(t, len(f.Modes), func(i int) string {
			return models.ParkModeSet(f.Modes[i])
		}))
	}
	if len(f.Groups) > 0 {
		parks = parks.Intersect(union(t, len(f.Groups), func(i int) string {
			return models.ParkGroupSet(f.Groups[i])
		}))
	}
	if f.TrucksOnly {
		parks = parks.Intersect(t.Set(models.SetParkTruck))
	}
	return parks
}

func union(t *models.MapTables, n int, name func(i int) string) models.IDSet {
	out := models.NewIDSet()
	for i := 0; i < n; i++ {
		for _, key := range t.Sets[name(i)] {
			out.Add(key)
		}
	}
	return out
}

// computeVisible returns the parks present on the current floor that pass
// the filter.
func (e *MapEngine) computeVisible() models.IDSet {
	onFloor := models.NewIDSet()
	for key, p := range e.tables.Parks {
		if p.OnLayer(e.floor) {
			onFloor.Add(key)
		}
	}
	return e.filter.apply(e.tables, onFloor)
}

// SetFilter schedules the filter to be applied after the debounce window.
// Calls within one window coalesce; only the last one runs.
func (e *MapEngine) SetFilter(f Filter) {
	e.debounced(func() {
		if _, err := e.ApplyFilter(f); err != nil {
			e.logger.Debug("filter dropped", zap.Error(err))
		}
	})
}

// ApplyFilter applies f immediately and returns the change to the visible
// park set.
func (e *MapEngine) ApplyFilter(f Filter) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter = f
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	return e.refreshVisible(), nil
}

// CurrentFilter returns the applied filter.
func (e *MapEngine) CurrentFilter() Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// SetFloor switches the displayed floor. Parks absent from the floor are
// hidden and the id labels of the remaining parks are rewritten in place.
func (e *MapEngine) SetFloor(floor int) (Change, error) {
	if floor < 1 {
		return Change{}, ErrInvalidFloor
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLoaded(); err != nil {
		return Change{}, err
	}
	if floor == e.floor {
		return Change{}, nil
	}
	e.floor = floor
	change := e.refreshVisible()
	e.state.Labels.Each(func(key string, d render.Drawable) {
		if p, ok := e.tables.Parks[key]; ok {
			e.scene.UpdateText(d, e.labelText(p))
		}
	})
	return change, nil
}

// Floor returns the displayed floor.
func (e *MapEngine) Floor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.floor
}

// refreshVisible recomputes the visible set and reconciles every park
// table against it.
func (e *MapEngine) refreshVisible() Change {
	e.visible = e.computeVisible()
	return Change{Delta: e.renderParksDelta()}
}
