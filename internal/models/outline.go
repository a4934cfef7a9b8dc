package models

// Edge names one side of an Outline.
type Edge int

const (
	EdgeLeft Edge = iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

func (e Edge) String() string {
	switch e {
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	}
	return "unknown"
}

// ParseEdge parses "left", "right", "top" or "bottom".
func ParseEdge(s string) (Edge, bool) {
	for _, e := range []Edge{EdgeLeft, EdgeRight, EdgeTop, EdgeBottom} {
		if e.String() == s {
			return e, true
		}
	}
	return 0, false
}

// OutlineObserver is notified after an edge changes.
type OutlineObserver func(o *Outline, changed Edge)

// Outline is an axis-aligned screen rectangle. Width and height are derived
// and always consistent with the edges.
type Outline struct {
	left, right, top, bottom float64
	width, height            float64
	observers                []OutlineObserver
}

// NewOutline returns an outline with the given edges.
func NewOutline(left, top, right, bottom float64) *Outline {
	return &Outline{
		left:   left,
		right:  right,
		top:    top,
		bottom: bottom,
		width:  right - left,
		height: bottom - top,
	}
}

func (o *Outline) Left() float64   { return o.left }
func (o *Outline) Right() float64  { return o.right }
func (o *Outline) Top() float64    { return o.top }
func (o *Outline) Bottom() float64 { return o.bottom }
func (o *Outline) Width() float64  { return o.width }
func (o *Outline) Height() float64 { return o.height }

// Edge returns the value of one edge.
func (o *Outline) Edge(e Edge) float64 {
	switch e {
	case EdgeLeft:
		return o.left
	case EdgeRight:
		return o.right
	case EdgeTop:
		return o.top
	default:
		return o.bottom
	}
}

// Observe registers fn to run after every effective edge change.
func (o *Outline) Observe(fn OutlineObserver) {
	o.observers = append(o.observers, fn)
}

// SetEdge moves one edge, recomputes the derived size and notifies
// observers. It returns false, without notifying, when v equals the current
// value.
func (o *Outline) SetEdge(e Edge, v float64) bool {
	switch e {
	case EdgeLeft:
		if o.left == v {
			return false
		}
		o.left = v
		o.width = o.right - o.left
	case EdgeRight:
		if o.right == v {
			return false
		}
		o.right = v
		o.width = o.right - o.left
	case EdgeTop:
		if o.top == v {
			return false
		}
		o.top = v
		o.height = o.bottom - o.top
	case EdgeBottom:
		if o.bottom == v {
			return false
		}
		o.bottom = v
		o.height = o.bottom - o.top
	default:
		return false
	}
	for _, fn := range o.observers {
		fn(o, e)
	}
	return true
}
