package render

import "math"

const (
	// DefaultCriticalScale is the zoom below which categories simplify.
	DefaultCriticalScale = 0.1
	// DefaultPointScale is the zoom above which point glyphs shrink.
	DefaultPointScale = 3
)

// Category is an entity category with its own level of detail.
type Category string

const (
	CategoryParks  Category = "parks"
	CategoryPaths  Category = "paths"
	CategoryPoints Category = "points"
	CategoryMarks  Category = "marks"
	CategoryLines  Category = "lines"
	CategoryTexts  Category = "texts"
)

// Transition records a category switching detail level.
type Transition struct {
	Category   Category `json:"category"`
	Simplified bool     `json:"simplified"`
}

// LodHandler switches a category between detailed and simplified drawing.
type LodHandler func(simplified bool)

// LodPolicy tracks the view scale and fires a category's handler only when
// the scale crosses the critical threshold, never on every change.
type LodPolicy struct {
	critical   float64
	pointScale float64
	scale      float64

	order      []Category
	handlers   map[Category]LodHandler
	simplified map[Category]bool
}

// NewLodPolicy creates a policy at initialScale. Zero thresholds take the
// defaults.
func NewLodPolicy(critical, pointScale, initialScale float64) *LodPolicy {
	if critical <= 0 {
		critical = DefaultCriticalScale
	}
	if pointScale <= 0 {
		pointScale = DefaultPointScale
	}
	if initialScale <= 0 {
		initialScale = 1
	}
	return &LodPolicy{
		critical:   critical,
		pointScale: pointScale,
		scale:      initialScale,
		handlers:   make(map[Category]LodHandler),
		simplified: make(map[Category]bool),
	}
}

// Register installs the handler for c. The category starts in the state
// implied by the current scale; the handler is not invoked.
func (p *LodPolicy) Register(c Category, fn LodHandler) {
	if _, ok := p.handlers[c]; !ok {
		p.order = append(p.order, c)
	}
	p.handlers[c] = fn
	p.simplified[c] = p.scale < p.critical
}

// Scale returns the current scale.
func (p *LodPolicy) Scale() float64 { return p.scale }

// CriticalScale returns the simplification threshold.
func (p *LodPolicy) CriticalScale() float64 { return p.critical }

// Simplified reports whether c is currently simplified.
func (p *LodPolicy) Simplified(c Category) bool {
	return p.simplified[c]
}

// SimplifiedAll returns the state of every registered category.
func (p *LodPolicy) SimplifiedAll() map[Category]bool {
	out := make(map[Category]bool, len(p.simplified))
	for c, s := range p.simplified {
		out[c] = s
	}
	return out
}

// SetScale updates the scale and invokes the handlers of categories whose
// side of the threshold changed, in registration order.
func (p *LodPolicy) SetScale(scale float64) []Transition {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil
	}
	old := p.scale
	p.scale = scale
	if (old < p.critical) == (scale < p.critical) {
		return nil
	}
	simplified := scale < p.critical
	transitions := make([]Transition, 0, len(p.order))
	for _, c := range p.order {
		if p.simplified[c] == simplified {
			continue
		}
		p.simplified[c] = simplified
		if fn := p.handlers[c]; fn != nil {
			fn(simplified)
		}
		transitions = append(transitions, Transition{Category: c, Simplified: simplified})
	}
	return transitions
}

// PointFactor returns the point glyph scale for the current zoom: 1 up to
// the point threshold, Sp/scale above it, quantised to 1/20 steps so that
// small zoom changes reuse the same glyph templates.
func (p *LodPolicy) PointFactor() float64 {
	return PointFactorAt(p.scale, p.pointScale)
}

// PointFactorAt is PointFactor for an explicit scale and threshold.
func PointFactorAt(scale, pointScale float64) float64 {
	if scale <= pointScale {
		return 1
	}
	f := math.Floor(pointScale/scale*20) / 20
	if f < 0.05 {
		f = 0.05
	}
	return f
}
