package engine

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/parser"
	"github.com/agv-mapview/backend/internal/render"
	"github.com/agv-mapview/backend/internal/snapshot"
	"github.com/agv-mapview/backend/internal/testutil"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testPayload = testutil.SiteMap

func newTestEngine(t *testing.T, opts Options) *MapEngine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	opts.Frame = geometry.NewFrame(100, 0, 0, 4)
	e := New(opts)
	t.Cleanup(e.Close)
	return e
}

func loadedEngine(t *testing.T, opts Options) *MapEngine {
	t.Helper()
	e := newTestEngine(t, opts)
	_, err := e.Load(context.Background(), []byte(testPayload))
	require.NoError(t, err)
	return e
}

func TestDispatchTableCoversEveryKind(t *testing.T) {
	for _, kind := range Kinds {
		ops, ok := dispatch[kind]
		require.True(t, ok, kind)
		assert.NotNil(t, ops.render, kind)
		assert.NotNil(t, ops.lodSwitch, kind)
		if kind == KindPoints {
			assert.Nil(t, ops.ingest)
		} else {
			assert.NotNil(t, ops.ingest, kind)
		}
	}
}

func TestLoadRendersEveryKind(t *testing.T) {
	e := newTestEngine(t, Options{})
	res, err := e.Load(context.Background(), []byte(testPayload))
	require.NoError(t, err)

	assert.False(t, res.CacheHit)
	assert.Equal(t, "json", res.Format)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 4, res.Counts["parks"])
	assert.Equal(t, 3, res.Counts["paths"])

	st := e.Stats()
	assert.True(t, st.Loaded)
	assert.Equal(t, 3, st.Visible)
	assert.Equal(t, 3, st.Tables["parks"])
	assert.Equal(t, 3, st.Tables["labels"])
	assert.Equal(t, 3, st.Tables["paths"])
	assert.Equal(t, 4, st.Tables["points"])
	assert.Equal(t, 1, st.Tables["marks"])
	assert.Equal(t, 1, st.Tables["lines"])
	assert.Equal(t, 1, st.Tables["texts"])

	// 3 park shapes, 3 path segments, 1 point glyph, 1 mark.
	assert.Equal(t, 8, st.Templates)
	assert.Equal(t, st.Templates, st.TemplateBuilds)
	assert.Equal(t, []int{1, 2, 4}, e.VisibleParks())
}

func TestLoadRejectsUnknownPayload(t *testing.T) {
	e := newTestEngine(t, Options{})
	_, err := e.Load(context.Background(), []byte("not a map"))
	assert.ErrorIs(t, err, parser.ErrUnknownFormat)
	assert.False(t, e.Loaded())

	_, err = e.SelectParks([]int{1})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoadHonoursCancellation(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Load(ctx, []byte(testPayload))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadRestoresFromSnapshot(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	cache := snapshot.NewCache(store, "", nil)

	first := newTestEngine(t, Options{Cache: cache})
	res, err := first.Load(ctx, []byte(testPayload))
	require.NoError(t, err)
	assert.False(t, res.CacheHit)

	second := newTestEngine(t, Options{Cache: cache})
	res2, err := second.Load(ctx, []byte(testPayload))
	require.NoError(t, err)
	assert.True(t, res2.CacheHit)
	assert.Equal(t, res.Hash, res2.Hash)
	assert.Equal(t, res.Counts, res2.Counts)

	// Templates are still built once over the restored tables.
	assert.Equal(t, first.Stats().Templates, second.Stats().Templates)
	assert.Equal(t, first.Stats().Tables, second.Stats().Tables)
	assert.Equal(t, 1, second.Stats().Cache.Hits)
}

func TestLoadFallsBackOnCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	cache := snapshot.NewCache(store, "", nil)
	require.NoError(t, store.Set(ctx, snapshot.Key(snapshot.Hash([]byte(testPayload))), []byte{0xc1}))

	e := newTestEngine(t, Options{Cache: cache})
	res, err := e.Load(ctx, []byte(testPayload))
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, 4, res.Counts["parks"])

	// The rewritten snapshot is usable.
	_, ok := cache.Load(ctx, res.Hash)
	assert.True(t, ok)
}

func TestSelectionTogglingKeepsIdentity(t *testing.T) {
	e := loadedEngine(t, Options{})
	_, err := e.SetFloor(2)
	require.NoError(t, err)

	// Floor 2 shows ids 1001..1004.
	_, err = e.SelectParks([]int{1001, 1002, 1003})
	require.NoError(t, err)
	b, _ := e.state.Selected.Get("P2")
	c, _ := e.state.Selected.Get("P3")

	change, err := e.SelectParks([]int{1002, 1003, 1004})
	require.NoError(t, err)
	assert.Equal(t, []string{"P4"}, change.Added)
	assert.Equal(t, []string{"P1"}, change.Removed)

	b2, _ := e.state.Selected.Get("P2")
	c2, _ := e.state.Selected.Get("P3")
	assert.Same(t, b, b2)
	assert.Same(t, c, c2)
	assert.Equal(t, []int{1002, 1003, 1004}, e.Selection())
}

func TestSingleSelectMatchesBatch(t *testing.T) {
	single := loadedEngine(t, Options{})
	batch := loadedEngine(t, Options{})

	_, err := single.SelectParks([]int{1, 2})
	require.NoError(t, err)
	_, err = single.SelectPark(4)
	require.NoError(t, err)
	change, err := single.DeselectPark(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, change.Removed)

	_, err = batch.SelectParks([]int{1, 2})
	require.NoError(t, err)
	_, err = batch.SelectParks([]int{2, 4})
	require.NoError(t, err)

	assert.Equal(t, batch.Selection(), single.Selection())
	assert.Equal(t, batch.state.Selected.Keys(), single.state.Selected.Keys())
}

func TestSelectUnknownIDs(t *testing.T) {
	e := loadedEngine(t, Options{})

	change, err := e.SelectParks([]int{1, 99, 3})
	require.NoError(t, err)
	// P3 is not on floor 1, so id 3 does not resolve there.
	assert.ElementsMatch(t, []string{"99", "3"}, change.Unknown)
	assert.Equal(t, []string{"P1"}, change.Added)

	change, err = e.SelectPark(99)
	require.NoError(t, err)
	assert.Equal(t, []string{"99"}, change.Unknown)
	assert.True(t, change.Empty())
}

func TestFloorSwitchRewritesLabelsInPlace(t *testing.T) {
	e := loadedEngine(t, Options{})
	label, ok := e.state.Labels.Get("P1")
	require.True(t, ok)
	assert.Equal(t, "1", label.(*render.Node).Text().Content)

	change, err := e.SetFloor(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"P3"}, change.Added)
	assert.Empty(t, change.Removed)

	same, _ := e.state.Labels.Get("P1")
	assert.Same(t, label, same)
	assert.Equal(t, "1001", same.(*render.Node).Text().Content)
	assert.Equal(t, []int{1001, 1002, 1003, 1004}, e.VisibleParks())

	_, err = e.SetFloor(0)
	assert.ErrorIs(t, err, ErrInvalidFloor)
}

func TestApplyFilter(t *testing.T) {
	e := loadedEngine(t, Options{})

	change, err := e.ApplyFilter(Filter{Types: []models.ParkType{models.ParkTypeCharging}})
	require.NoError(t, err)
	assert.Equal(t, []string{"P2", "P4"}, change.Removed)
	assert.Equal(t, []int{1}, e.VisibleParks())

	_, err = e.ApplyFilter(Filter{TrucksOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, e.VisibleParks())

	_, err = e.ApplyFilter(Filter{Groups: []string{"north"}, Modes: []models.ParkMode{models.ParkModeDual}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, e.VisibleParks())

	_, err = e.ApplyFilter(Filter{})
	require.NoError(t, err)
	assert.Len(t, e.VisibleParks(), 3)
}

func TestSetFilterIsDebounced(t *testing.T) {
	e := loadedEngine(t, Options{FilterDebounce: 20 * time.Millisecond})

	e.SetFilter(Filter{Types: []models.ParkType{models.ParkTypeCharging}})
	e.SetFilter(Filter{TrucksOnly: true})
	assert.True(t, e.CurrentFilter().Empty())

	assert.Eventually(t, func() bool {
		return e.CurrentFilter().TrucksOnly && e.Stats().Visible == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, e.CurrentFilter().Types)
}

func TestLodSwitchesToAggregate(t *testing.T) {
	e := loadedEngine(t, Options{})

	res := e.SetScale(0.05)
	assert.Len(t, res.Transitions, len(Kinds))
	assert.Zero(t, e.state.Parks.Len())
	assert.Len(t, e.scene.Attached(render.LayerAggregate), 1)
	assert.False(t, e.scene.LayerVisible(render.LayerPaths))
	assert.False(t, e.scene.LayerVisible(render.LayerLabels))
	builds := e.Stats().TemplateBuilds

	assert.Empty(t, e.SetScale(0.06).Transitions)

	res = e.SetScale(0.5)
	assert.Len(t, res.Transitions, len(Kinds))
	assert.Equal(t, 3, e.state.Parks.Len())
	assert.Empty(t, e.scene.Attached(render.LayerAggregate))
	assert.True(t, e.scene.LayerVisible(render.LayerPaths))

	e.SetScale(0.05)
	assert.Equal(t, builds, e.Stats().TemplateBuilds, "aggregate reused on re-entry")
}

func TestAggregateTemplateIsReplacedNotAccumulated(t *testing.T) {
	e := loadedEngine(t, Options{})
	e.SetScale(0.05)
	before := e.Stats().Templates

	for i := 0; i < 20; i++ {
		_, err := e.MoveTruck(models.TruckPosition{TruckID: "T7", X: float64(i), Y: -1, Theta: 90})
		require.NoError(t, err)
	}
	assert.Equal(t, before, e.Stats().Templates)

	for i := 0; i < 5; i++ {
		_, err := e.ApplyFilter(Filter{TrucksOnly: true})
		require.NoError(t, err)
		_, err = e.ApplyFilter(Filter{})
		require.NoError(t, err)
	}
	assert.Equal(t, before, e.Stats().Templates)
	assert.Len(t, e.scene.Attached(render.LayerAggregate), 1)

	// Same view again: no rebuild.
	builds := e.Stats().TemplateBuilds
	e.SetScale(0.5)
	e.SetScale(0.05)
	assert.Equal(t, builds, e.Stats().TemplateBuilds)
}

func TestPointRedrawIsDeferredToNextFrame(t *testing.T) {
	mock := clock.NewMock()
	e := loadedEngine(t, Options{Clock: mock})
	before := e.Stats().Templates

	res := e.SetScale(6)
	assert.True(t, res.PointsDeferred)
	assert.Equal(t, 0.5, res.PointFactor)
	assert.Equal(t, before, e.Stats().Templates)
	assert.Equal(t, 1, e.Stats().PendingFrame)

	mock.Add(render.DefaultFrameInterval)
	assert.Eventually(t, func() bool {
		return e.Stats().Templates == before+1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 4, e.Stats().Tables["points"])

	// Same factor: nothing to redraw.
	assert.False(t, e.SetScale(5.8).PointsDeferred)
}

func TestTagsUpdateInPlace(t *testing.T) {
	e := loadedEngine(t, Options{})

	change, err := e.SetTags(map[int]string{1: "5", 2: "7"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, change.Added)
	tag, _ := e.state.Tags.Get("P1")

	change, err = e.SetTags(map[int]string{1: "6"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P2"}, change.Removed)
	assert.Empty(t, change.Added)

	same, _ := e.state.Tags.Get("P1")
	assert.Same(t, tag, same)
	assert.Equal(t, "6", same.(*render.Node).Text().Content)
}

func TestStatusTagsSwapOnChange(t *testing.T) {
	e := loadedEngine(t, Options{})

	change, err := e.SetStatusTags(map[int]models.ParkStatus{1: models.ParkStatusOccupied})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1|occupied"}, change.Added)

	change, err = e.SetStatusTags(map[int]models.ParkStatus{1: models.ParkStatusEmpty})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1|occupied"}, change.Removed)
	assert.Equal(t, []string{"P1|empty"}, change.Added)

	_, err = e.SetStatusTags(map[int]models.ParkStatus{1: "haunted"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCandidatesAndStock(t *testing.T) {
	e := loadedEngine(t, Options{})

	change, err := e.MarkCandidates([]int{1, 2, 4})
	require.NoError(t, err)
	assert.Len(t, change.Added, 3)
	// Candidates share one constant template.
	_, ok := e.templates.Get("candidate")
	assert.True(t, ok)

	change, err = e.SetStock([]int{4})
	require.NoError(t, err)
	assert.Equal(t, []string{"P4"}, change.Added)

	// Filtering hides overlays of filtered parks and restores them.
	_, err = e.ApplyFilter(Filter{TrucksOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, e.state.Candidates.Len())
	assert.Zero(t, e.state.Stock.Len())
	_, err = e.ApplyFilter(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, e.state.Candidates.Len())
	assert.Equal(t, 1, e.state.Stock.Len())
}

func TestPathOverlays(t *testing.T) {
	e := loadedEngine(t, Options{})

	change, err := e.SetPathOverlay(render.OverlayControl, []string{"R1", "nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, change.Added)
	assert.Equal(t, []string{"nope"}, change.Unknown)
	assert.Equal(t, []string{"R1"}, e.PathOverlay(render.OverlayControl))

	_, err = e.SetPathOverlay("teleport", nil)
	assert.ErrorIs(t, err, ErrInvalidOverlay)
}

func TestShowTravel(t *testing.T) {
	e := loadedEngine(t, Options{})

	change, err := e.ShowTravel("F;1,2,0;3,2,0;")
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, change.Added)

	// Reverse direction matches the same path.
	change, err = e.ShowTravel("B;3,2,0;1,2,0")
	require.NoError(t, err)
	assert.True(t, change.Empty())

	change, err = e.ShowTravel("F;0,0,0;1,2,0;9,9,0")
	require.NoError(t, err)
	assert.Equal(t, []string{"M.1"}, change.Added)
	assert.Equal(t, []string{"R1"}, change.Removed)
	assert.Equal(t, []string{"1"}, change.Unknown)
}

func TestMoveTruck(t *testing.T) {
	e := loadedEngine(t, Options{})
	_, err := e.SelectParks([]int{2})
	require.NoError(t, err)
	builds := e.Stats().TemplateBuilds

	change, err := e.MoveTruck(models.TruckPosition{TruckID: "T7", X: 10, Y: -1, Theta: 90})
	require.NoError(t, err)
	assert.Equal(t, []string{"P2"}, change.Moved)

	park, ok := e.Park(2)
	require.True(t, ok)
	assert.Equal(t, 1000.0, park.X)
	assert.Equal(t, 100.0, park.Y)
	assert.InDelta(t, 3*math.Pi/2, park.Rotate, 1e-9)

	for _, table := range []*render.StateTable{e.state.Parks, e.state.Selected} {
		d, ok := table.Get("P2")
		require.True(t, ok)
		x, y, rot := d.(render.Group).Transform()
		assert.Equal(t, 1000.0, x)
		assert.Equal(t, 100.0, y)
		assert.InDelta(t, 3*math.Pi/2, rot, 1e-9)
	}
	assert.Equal(t, builds, e.Stats().TemplateBuilds)

	label, _ := e.state.Labels.Get("P2")
	assert.Equal(t, 1000.0, label.(*render.Node).Text().X)

	change, err = e.MoveTruck(models.TruckPosition{TruckID: "T0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"T0"}, change.Unknown)
}

func TestOutlineEditing(t *testing.T) {
	e := loadedEngine(t, Options{})
	_, ok := e.Outline()
	assert.False(t, ok)

	st := e.EditOutline(0, 0, 100, 50)
	assert.Equal(t, 100.0, st.Width)

	st, changed := e.SetOutlineEdge(models.EdgeRight, 200)
	assert.True(t, changed)
	assert.Equal(t, 200.0, st.Width)
	assert.Equal(t, 1, st.Repositions)

	_, changed = e.SetOutlineEdge(models.EdgeRight, 200)
	assert.False(t, changed)

	// Reloading the map keeps the editor intact.
	_, err := e.Load(context.Background(), []byte(testPayload))
	require.NoError(t, err)
	assert.Len(t, e.scene.Attached(render.LayerOutline), 9)

	e.CloseOutline()
	assert.Empty(t, e.scene.Attached(render.LayerOutline))
}

func TestDrawCommandsAndPreview(t *testing.T) {
	e := loadedEngine(t, Options{})

	commands := e.DrawCommands()
	require.NotEmpty(t, commands)
	assert.Equal(t, render.LayerLines, commands[0].Layer)

	var buf bytes.Buffer
	require.NoError(t, e.RenderPNG(&buf, render.RasterOptions{Width: 320, Height: 200}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestSceneEventsReachSubscribers(t *testing.T) {
	e := loadedEngine(t, Options{})
	var attached []string
	cancel := e.Subscribe(func(ev render.Event) {
		if ev.Type == render.EventAttach && ev.Layer == render.LayerSelection {
			attached = append(attached, ev.NodeID)
		}
	})
	defer cancel()

	_, err := e.SelectParks([]int{1, 2})
	require.NoError(t, err)
	assert.Len(t, attached, 2)
}

func TestParksAt(t *testing.T) {
	e := loadedEngine(t, Options{})

	// P1 sits at (1, 2) m, which is (100, -200) on screen.
	hits, err := e.ParksAt(100, -200)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, hits)

	hits, err = e.ParksAt(500, -200)
	require.NoError(t, err)
	assert.Empty(t, hits, "P3 is not on floor 1")

	_, err = e.SetFloor(2)
	require.NoError(t, err)
	hits, err = e.ParksAt(500, -200)
	require.NoError(t, err)
	assert.Equal(t, []int{1003}, hits)

	hits, err = e.ParksAt(5000, 5000)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestParksAtFollowsTrucks(t *testing.T) {
	e := loadedEngine(t, Options{})
	_, err := e.MoveTruck(models.TruckPosition{TruckID: "T7", X: 10, Y: -1, Theta: 90})
	require.NoError(t, err)

	hits, err := e.ParksAt(1000, 100)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, hits)

	hits, err = e.ParksAt(300, -200)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = newTestEngine(t, Options{}).ParksAt(0, 0)
	assert.ErrorIs(t, err, ErrNotLoaded)
}
