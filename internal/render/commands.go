package render

import (
	"encoding/json"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// DrawCommand is a single drawing operation for a client canvas. Commands
// are in painter's order, back to front.
type DrawCommand struct {
	Op        string    `json:"op" msgpack:"op"` // "path" or "text"
	ObjectID  string    `json:"objectId,omitempty" msgpack:"objectId,omitempty"`
	Layer     Layer     `json:"layer" msgpack:"layer"`
	Transform []float64 `json:"transform,omitempty" msgpack:"transform,omitempty"`
	Path      []PathOp  `json:"path,omitempty" msgpack:"path,omitempty"`
	Text      *TextSpec `json:"text,omitempty" msgpack:"text,omitempty"`
}

// Matrix returns the command transform, identity when absent.
func (c DrawCommand) Matrix() Matrix2D {
	if len(c.Transform) != 6 {
		return Identity()
	}
	var m Matrix2D
	copy(m[:], c.Transform)
	return m
}

// CompileDrawCommands flattens the visible layers of the scene into draw
// commands. Group placements are folded into each leaf's transform, and
// ObjectID carries the id of the top-level attached node.
func (s *Scene) CompileDrawCommands() []DrawCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var commands []DrawCommand
	for _, layer := range Layers {
		l, ok := s.layers[layer]
		if !ok || !l.visible {
			continue
		}
		for _, n := range s.attachedLocked(layer) {
			compileNode(n, n.id, layer, Identity(), &commands)
		}
	}
	return commands
}

func compileNode(n *Node, owner string, layer Layer, parent Matrix2D, commands *[]DrawCommand) {
	if n == nil || n.disposed {
		return
	}
	world := parent.Multiply(Placement(n.x, n.y, n.rotation))
	var transform []float64
	if !world.IsIdentity() {
		transform = world.ToSlice()
	}

	switch n.kind {
	case NodePath:
		if len(n.ops) > 0 {
			*commands = append(*commands, DrawCommand{
				Op:        "path",
				ObjectID:  owner,
				Layer:     layer,
				Transform: transform,
				Path:      n.ops,
			})
		}
	case NodeText:
		text := n.text
		*commands = append(*commands, DrawCommand{
			Op:        "text",
			ObjectID:  owner,
			Layer:     layer,
			Transform: transform,
			Text:      &text,
		})
	case NodeGroup:
		for _, child := range n.children {
			compileNode(child, owner, layer, world, commands)
		}
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) ([]byte, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	return json.Marshal(commands)
}

// DrawCommandsToMsgpack serializes draw commands to msgpack.
func DrawCommandsToMsgpack(commands []DrawCommand) ([]byte, error) {
	return msgpack.Marshal(commands)
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Bounds returns the box enclosing every path point and text anchor of
// commands, in world coordinates. Arcs are approximated by their
// endpoints.
func Bounds(commands []DrawCommand) Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(x, y float64) {
		if math.IsNaN(x) || math.IsNaN(y) {
			return
		}
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	for _, c := range commands {
		m := c.Matrix()
		switch c.Op {
		case "path":
			for _, op := range c.Path {
				switch op.Kind {
				case OpMoveTo, OpLineTo, OpArc:
					grow(m.TransformPoint(op.X, op.Y))
				}
			}
		case "text":
			if c.Text != nil {
				grow(m.TransformPoint(c.Text.X, c.Text.Y))
			}
		}
	}
	if math.IsInf(minX, 1) {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
