package render

import (
	"testing"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T) (*Scene, *OutlineEditor) {
	t.Helper()
	scene := NewScene()
	frame := geometry.NewFrame(100, 0, 0, 3)
	outline := models.NewOutline(100, 200, 300, 400)
	style := models.Stroke{Color: "#1e90ff", Width: 2, Opacity: 1}
	return scene, NewOutlineEditor(scene, NewTemplateCache(scene), frame, style, outline)
}

func TestOutlineEditorBuildsNineElements(t *testing.T) {
	scene, editor := newTestEditor(t)

	assert.Len(t, scene.Attached(LayerOutline), 9)
	stats := scene.Stats()
	assert.Equal(t, 2, stats.Paths, "body plus one shared handle template")
	assert.Equal(t, 8, stats.Groups)
	assert.Equal(t, 4, stats.Texts)

	label := editor.labels[0].(*Node).Text()
	assert.Equal(t, "1, -2", label.Content)
}

func TestOutlineEditorRepositionsInPlace(t *testing.T) {
	scene, editor := newTestEditor(t)
	before := scene.Stats()

	require.True(t, editor.Outline().SetEdge(models.EdgeLeft, 50))
	assert.Equal(t, 1, editor.Repositions())

	after := scene.Stats()
	assert.Equal(t, before.Paths, after.Paths)
	assert.Equal(t, before.Groups, after.Groups)
	assert.Equal(t, before.Attaches, after.Attaches)

	body := editor.body.(*Node).Ops()
	assert.Equal(t, OpMoveTo, body[0].Kind)
	assert.InDelta(t, 50, body[0].X, 1e-9)
	assert.InDelta(t, 250, editor.Outline().Width(), 1e-9)

	x, y, _ := editor.edges[0].Transform()
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 300, y, 1e-9)
	assert.Equal(t, "0.5, -2", editor.labels[0].(*Node).Text().Content)
	assert.Equal(t, "0.5, -4", editor.labels[3].(*Node).Text().Content)
}

func TestOutlineEditorIgnoresNoOpWrites(t *testing.T) {
	scene, editor := newTestEditor(t)
	before := scene.Stats()

	assert.False(t, editor.Outline().SetEdge(models.EdgeTop, 200))
	assert.Equal(t, 0, editor.Repositions())
	assert.Equal(t, before.Updates, scene.Stats().Updates)
}

func TestOutlineEditorClose(t *testing.T) {
	scene, editor := newTestEditor(t)
	editor.Close()

	assert.Empty(t, scene.Attached(LayerOutline))
	// The shared handle template outlives the editor.
	assert.Equal(t, 1, scene.Stats().Live)
}
