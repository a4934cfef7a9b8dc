package render

import (
	"sort"
	"strconv"
	"sync"
)

// NodeKind is the kind of a scene node.
type NodeKind string

const (
	NodePath  NodeKind = "path"
	NodeText  NodeKind = "text"
	NodeGroup NodeKind = "group"
)

// EventType names a scene change.
type EventType string

const (
	EventAttach     EventType = "attach"
	EventDetach     EventType = "detach"
	EventUpdate     EventType = "update"
	EventVisibility EventType = "visibility"
)

// Event describes one scene change.
type Event struct {
	Type    EventType `json:"type" msgpack:"type"`
	Layer   Layer     `json:"layer,omitempty" msgpack:"layer,omitempty"`
	NodeID  string    `json:"nodeId,omitempty" msgpack:"nodeId,omitempty"`
	Visible bool      `json:"visible,omitempty" msgpack:"visible,omitempty"`
}

// SceneStats counts scene operations.
type SceneStats struct {
	Paths    int `json:"paths"`
	Texts    int `json:"texts"`
	Groups   int `json:"groups"`
	Attaches int `json:"attaches"`
	Detaches int `json:"detaches"`
	Disposes int `json:"disposes"`
	Updates  int `json:"updates"`
	Live     int `json:"live"`
	Attached int `json:"attached"`
}

// Node is a retained scene object. Groups reference their children; a
// child may be shared by many groups.
type Node struct {
	scene *Scene
	id    string
	kind  NodeKind

	ops      []PathOp
	text     TextSpec
	children []*Node

	x, y, rotation float64

	layer    Layer
	seq      uint64
	disposed bool
}

func (n *Node) ID() string     { return n.id }
func (n *Node) Kind() NodeKind { return n.kind }

// Add appends child to a group.
func (n *Node) Add(child Drawable) {
	c, ok := child.(*Node)
	if !ok {
		return
	}
	n.scene.mu.Lock()
	n.children = append(n.children, c)
	n.scene.mu.Unlock()
}

// SetTransform places the node.
func (n *Node) SetTransform(x, y, rotation float64) {
	n.scene.mu.Lock()
	if n.x == x && n.y == y && n.rotation == rotation {
		n.scene.mu.Unlock()
		return
	}
	n.x, n.y, n.rotation = x, y, rotation
	n.scene.stats.Updates++
	ev := Event{Type: EventUpdate, Layer: n.layer, NodeID: n.id}
	attached := n.layer != ""
	n.scene.mu.Unlock()
	if attached {
		n.scene.emit(ev)
	}
}

// Transform returns the node placement.
func (n *Node) Transform() (x, y, rotation float64) {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.x, n.y, n.rotation
}

// Ops returns the path operations of a path node.
func (n *Node) Ops() []PathOp {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.ops
}

// Text returns the spec of a text node.
func (n *Node) Text() TextSpec {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.text
}

// Children returns the children of a group.
func (n *Node) Children() []*Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return append([]*Node(nil), n.children...)
}

type sceneLayer struct {
	visible bool
	members map[string]*Node
}

// Scene is a retained, recording implementation of Surface. It keeps every
// live node, the attached set per layer in attach order, and notifies
// subscribers of changes. Listeners run synchronously and must not call
// back into the scene.
type Scene struct {
	mu        sync.RWMutex
	nextID    uint64
	seq       uint64
	nodes     map[string]*Node
	layers    map[Layer]*sceneLayer
	stats     SceneStats
	listeners map[int]func(Event)
	nextSub   int
}

var _ Surface = (*Scene)(nil)

// NewScene creates an empty scene with every layer visible.
func NewScene() *Scene {
	s := &Scene{
		nodes:     make(map[string]*Node),
		layers:    make(map[Layer]*sceneLayer, len(Layers)),
		listeners: make(map[int]func(Event)),
	}
	for _, l := range Layers {
		s.layers[l] = &sceneLayer{visible: true, members: make(map[string]*Node)}
	}
	return s
}

func (s *Scene) newNode(kind NodeKind) *Node {
	s.nextID++
	n := &Node{scene: s, id: string(kind[0]) + strconv.FormatUint(s.nextID, 10), kind: kind}
	s.nodes[n.id] = n
	return n
}

func (s *Scene) NewPath(ops []PathOp) Drawable {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.newNode(NodePath)
	n.ops = ops
	s.stats.Paths++
	return n
}

func (s *Scene) NewText(spec TextSpec) Drawable {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.newNode(NodeText)
	n.text = spec
	s.stats.Texts++
	return n
}

func (s *Scene) NewGroup() Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.newNode(NodeGroup)
	s.stats.Groups++
	return n
}

func (s *Scene) UpdatePath(d Drawable, ops []PathOp) {
	n, ok := s.node(d)
	if !ok {
		return
	}
	s.mu.Lock()
	n.ops = ops
	s.stats.Updates++
	ev := Event{Type: EventUpdate, Layer: n.layer, NodeID: n.id}
	s.mu.Unlock()
	s.emit(ev)
}

func (s *Scene) UpdateText(d Drawable, content string) {
	n, ok := s.node(d)
	if !ok {
		return
	}
	s.mu.Lock()
	if n.text.Content == content {
		s.mu.Unlock()
		return
	}
	n.text.Content = content
	s.stats.Updates++
	ev := Event{Type: EventUpdate, Layer: n.layer, NodeID: n.id}
	s.mu.Unlock()
	s.emit(ev)
}

func (s *Scene) Attach(layer Layer, d Drawable) {
	n, ok := s.node(d)
	if !ok {
		return
	}
	s.mu.Lock()
	l, ok := s.layers[layer]
	if !ok {
		l = &sceneLayer{visible: true, members: make(map[string]*Node)}
		s.layers[layer] = l
	}
	if n.layer != "" && n.layer != layer {
		delete(s.layers[n.layer].members, n.id)
	}
	s.seq++
	n.layer = layer
	n.seq = s.seq
	l.members[n.id] = n
	s.stats.Attaches++
	s.mu.Unlock()
	s.emit(Event{Type: EventAttach, Layer: layer, NodeID: n.id})
}

func (s *Scene) Detach(layer Layer, d Drawable) {
	n, ok := s.node(d)
	if !ok {
		return
	}
	s.mu.Lock()
	l, ok := s.layers[layer]
	if !ok || l.members[n.id] == nil {
		s.mu.Unlock()
		return
	}
	delete(l.members, n.id)
	n.layer = ""
	s.stats.Detaches++
	s.mu.Unlock()
	s.emit(Event{Type: EventDetach, Layer: layer, NodeID: n.id})
}

// Dispose releases a node. Attached nodes are detached first. A group's
// children are not disposed.
func (s *Scene) Dispose(d Drawable) {
	n, ok := s.node(d)
	if !ok {
		return
	}
	s.mu.RLock()
	layer := n.layer
	s.mu.RUnlock()
	if layer != "" {
		s.Detach(layer, n)
	}
	s.mu.Lock()
	n.disposed = true
	delete(s.nodes, n.id)
	s.stats.Disposes++
	s.mu.Unlock()
}

func (s *Scene) SetLayerVisible(layer Layer, visible bool) {
	s.mu.Lock()
	l, ok := s.layers[layer]
	if !ok || l.visible == visible {
		s.mu.Unlock()
		return
	}
	l.visible = visible
	s.mu.Unlock()
	s.emit(Event{Type: EventVisibility, Layer: layer, Visible: visible})
}

func (s *Scene) LayerVisible(layer Layer) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layers[layer]
	return ok && l.visible
}

// Lookup returns a live node by id.
func (s *Scene) Lookup(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Attached returns the nodes attached to layer in attach order.
func (s *Scene) Attached(layer Layer) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attachedLocked(layer)
}

func (s *Scene) attachedLocked(layer Layer) []*Node {
	l, ok := s.layers[layer]
	if !ok {
		return nil
	}
	nodes := make([]*Node, 0, len(l.members))
	for _, n := range l.members {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].seq < nodes[j].seq })
	return nodes
}

// Stats returns a snapshot of the operation counters.
func (s *Scene) Stats() SceneStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Live = len(s.nodes)
	for _, l := range s.layers {
		st.Attached += len(l.members)
	}
	return st
}

// Subscribe registers fn for scene events and returns its cancel func.
func (s *Scene) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Scene) emit(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Scene) node(d Drawable) (*Node, bool) {
	n, ok := d.(*Node)
	if !ok || n == nil || n.scene != s {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return n, !n.disposed
}
