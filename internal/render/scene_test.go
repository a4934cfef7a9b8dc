package render

import (
	"bytes"
	"encoding/json"
	"image/color"
	"testing"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func square(size float64) []PathOp {
	return NewPathBuilder().Rect(0, 0, size, size).Fill("#336699", 1).Ops()
}

func TestCompileFoldsGroupTransforms(t *testing.T) {
	scene := NewScene()
	cache := NewTemplateCache(scene)

	g := cache.Instance("sq", func() []PathOp { return square(10) }, 100, 50, 0)
	scene.Attach(LayerParks, g)
	line := scene.NewPath(NewPathBuilder().MoveTo(0, 0).LineTo(5, 5).Stroke("black", 1, 1).Ops())
	scene.Attach(LayerLines, line)

	commands := scene.CompileDrawCommands()
	require.Len(t, commands, 2)

	// Lines sit below parks regardless of attach order.
	assert.Equal(t, LayerLines, commands[0].Layer)
	assert.Nil(t, commands[0].Transform)
	assert.Equal(t, LayerParks, commands[1].Layer)
	assert.Equal(t, g.ID(), commands[1].ObjectID)

	x, y := commands[1].Matrix().TransformPoint(0, 0)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)
}

func TestCompileSkipsHiddenLayers(t *testing.T) {
	scene := NewScene()
	var events []Event
	scene.Subscribe(func(ev Event) { events = append(events, ev) })

	scene.Attach(LayerParks, scene.NewPath(square(4)))
	scene.SetLayerVisible(LayerParks, false)
	scene.SetLayerVisible(LayerParks, false)

	assert.Empty(t, scene.CompileDrawCommands())
	assert.False(t, scene.LayerVisible(LayerParks))
	require.Len(t, events, 2)
	assert.Equal(t, EventVisibility, events[1].Type)

	scene.SetLayerVisible(LayerParks, true)
	assert.Len(t, scene.CompileDrawCommands(), 1)
}

func TestSceneDisposeDetachesButKeepsChildren(t *testing.T) {
	scene := NewScene()
	child := scene.NewPath(square(2))
	g := scene.NewGroup()
	g.Add(child)
	scene.Attach(LayerMarks, g)

	scene.Dispose(g)
	stats := scene.Stats()
	assert.Equal(t, 1, stats.Detaches)
	assert.Equal(t, 1, stats.Disposes)
	assert.Equal(t, 0, stats.Attached)
	assert.Equal(t, 1, stats.Live)

	_, ok := scene.Lookup(child.ID())
	assert.True(t, ok)

	// Operations on a disposed node are ignored.
	scene.Attach(LayerMarks, g)
	assert.Empty(t, scene.Attached(LayerMarks))
}

func TestSceneUpdates(t *testing.T) {
	scene := NewScene()
	text := scene.NewText(TextSpec{Content: "1"})
	scene.Attach(LayerLabels, text)

	var updates int
	cancel := scene.Subscribe(func(ev Event) {
		if ev.Type == EventUpdate {
			updates++
		}
	})
	scene.UpdateText(text, "1")
	scene.UpdateText(text, "1001")
	cancel()
	scene.UpdateText(text, "2001")

	assert.Equal(t, 1, updates)
	n, _ := scene.Lookup(text.ID())
	assert.Equal(t, "2001", n.Text().Content)
}

func TestBounds(t *testing.T) {
	commands := []DrawCommand{
		{Op: "path", Transform: Translate(10, 10).ToSlice(), Path: NewPathBuilder().MoveTo(0, 0).LineTo(100, 50).Ops()},
		{Op: "text", Text: &TextSpec{X: 5, Y: 80}},
	}
	b := Bounds(commands)
	assert.Equal(t, Rect{X: 5, Y: 10, Width: 105, Height: 70}, b)
	assert.False(t, b.IsEmpty())
	assert.True(t, Bounds(nil).IsEmpty())
}

func TestDrawCommandSerialization(t *testing.T) {
	data, err := DrawCommandsToJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	commands := []DrawCommand{{Op: "path", Layer: LayerPaths, Path: square(1)}}
	data, err = DrawCommandsToJSON(commands)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "paths", decoded[0]["layer"])

	packed, err := DrawCommandsToMsgpack(commands)
	require.NoError(t, err)
	var back []DrawCommand
	require.NoError(t, msgpack.Unmarshal(packed, &back))
	assert.Equal(t, commands[0].Path, back[0].Path)
}

func TestParseColor(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	assert.Equal(t, red, ParseColor("#ff0000", 1))
	assert.Equal(t, red, ParseColor("#F00", 1))
	assert.Equal(t, red, ParseColor(" red ", 1))
	assert.Equal(t, color.NRGBA{R: 255, A: 128}, ParseColor("red", 0.5))
	assert.Equal(t, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}, ParseColor("#11223344", 1))
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, ParseColor("not-a-colour", 2))
}

func TestRasterizeScene(t *testing.T) {
	scene := NewScene()
	painter := NewPainter(scene, NewTemplateCache(scene), nil)
	park := &models.Park{ParkID: "P1", X: 100, Y: 100, W: 80, L: 120, Type: models.ParkTypeCharging}
	park.UpdateAnchors()
	scene.Attach(LayerParks, painter.Park(park, false))
	scene.Attach(LayerLabels, painter.Label(park, "1"))
	path := &models.AGVPath{X1: 0, Y1: 0, X2: 200, Y2: 0, Radius: -100}
	scene.Attach(LayerPaths, painter.Path(path, ""))

	r := NewRasterizer(RasterOptions{Width: 200, Height: 100, Background: "white", Padding: 4})
	img, err := r.Rasterize(scene.CompileDrawCommands())
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf, scene.CompileDrawCommands()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestArcCenterAcceptsSemicircle(t *testing.T) {
	p1 := r2.Point{X: 0, Y: 0}
	p2 := r2.Point{X: 200, Y: 0}
	c, ok := arcCenter(p1, p2, 100)
	require.True(t, ok)
	assert.InDelta(t, 100, c.X, 1e-6)
	assert.InDelta(t, 0, c.Y, 1e-6)

	_, ok = arcCenter(p1, p2, 50)
	assert.False(t, ok)
}
