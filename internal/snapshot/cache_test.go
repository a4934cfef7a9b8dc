package snapshot

import (
	"context"
	"sync"
	"testing"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// recordingStore logs every mutation in order.
type recordingStore struct {
	*MemoryStore
	mu  sync.Mutex
	ops []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore()}
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.ops = append(s.ops, "set "+key)
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *recordingStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	s.ops = append(s.ops, "remove "+key)
	s.mu.Unlock()
	return s.MemoryStore.Remove(ctx, key)
}

func sampleTables() *models.MapTables {
	t := models.NewMapTables()
	p := &models.Park{ID: 7, ParkID: "P7", X: 150, Y: -250, W: 80, L: 120, Type: models.ParkTypeCharging, Layers: []int{1, 2}}
	p.UpdateAnchors()
	t.Parks[p.ParkID] = p
	t.ParkByID[p.ID] = p.ParkID
	t.Paths["A1"] = &models.AGVPath{ID: 1, PathID: "A1", X2: 200, Radius: -100, Forward: true}
	t.Sets[models.ParkTypeSet(p.Type)] = []string{"P7"}
	t.ShapeGroups[p.ShapeKey(false)] = []string{"P7"}
	t.Routes.Bind("g1", "P7", "A1")
	return t
}

func TestHash(t *testing.T) {
	a := Hash([]byte(`{"Parks":[]}`))
	assert.Len(t, a, 32)
	assert.Equal(t, a, Hash([]byte(`{"Parks":[]}`)))
	assert.NotEqual(t, a, Hash([]byte(`{"Parks":[{}]}`)))
	assert.Equal(t, "snapshot:"+a, Key(a))
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(NewMemoryStore(), "", zaptest.NewLogger(t))
	assert.Equal(t, DefaultVersion, cache.Version())

	_, ok := cache.Load(ctx, "abc")
	assert.False(t, ok)

	require.NoError(t, cache.Save(ctx, "abc", sampleTables()))
	tables, ok := cache.Load(ctx, "abc")
	require.True(t, ok)

	park := tables.Parks["P7"]
	require.NotNil(t, park)
	assert.Equal(t, models.ParkTypeCharging, park.Type)
	assert.Equal(t, []int{1, 2}, park.Layers)
	assert.Equal(t, sampleTables().Parks["P7"].Anchors, park.Anchors)
	assert.Equal(t, "P7", tables.ParkByID[7])
	assert.Equal(t, -100.0, tables.Paths["A1"].Radius)
	assert.True(t, tables.Set(models.ParkTypeSet(models.ParkTypeCharging)).Has("P7"))
	pathID, ok := tables.Routes.PathFor("g1", "P7")
	assert.True(t, ok)
	assert.Equal(t, "A1", pathID)

	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{Key("abc")}, keys)

	st := cache.Stats()
	assert.Equal(t, 1, st.Hits)
	assert.Equal(t, 1, st.Misses)
	assert.Equal(t, 1, st.Writes)
}

func TestCacheEpochBumpPurgesBeforeWrite(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()

	old := NewCache(store, "1.0.0", zap.NewNop())
	require.NoError(t, old.Save(ctx, "h1", sampleTables()))
	require.NoError(t, old.Save(ctx, "h2", sampleTables()))
	assert.Equal(t, 3, store.Len())

	core, logs := observer.New(zap.InfoLevel)
	bumped := NewCache(store, "1.0.1", zap.New(core))
	store.ops = nil
	require.NoError(t, bumped.Save(ctx, "h3", sampleTables()))

	require.GreaterOrEqual(t, len(store.ops), 3)
	assert.ElementsMatch(t, []string{"remove " + Key("h1"), "remove " + Key("h2")}, store.ops[:2])
	assert.Contains(t, store.ops, "set "+Key("h3"))

	_, ok, _ := store.Get(ctx, Key("h1"))
	assert.False(t, ok)
	_, ok = bumped.Load(ctx, "h2")
	assert.False(t, ok)
	_, ok = bumped.Load(ctx, "h3")
	assert.True(t, ok)

	purge := logs.FilterMessage("snapshot epoch changed, purged cache").All()
	require.Len(t, purge, 1)
	assert.Equal(t, int64(2), purge[0].ContextMap()["purged"])
	assert.Equal(t, 2, bumped.Stats().Purged)
}

func TestCacheSameVersionKeepsEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, NewCache(store, "2.0.0", nil).Save(ctx, "h", sampleTables()))

	again := NewCache(store, "2.0.0", nil)
	purged, err := again.Validate(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
	_, ok := again.Load(ctx, "h")
	assert.True(t, ok)
}

func TestCacheDecodeFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	core, logs := observer.New(zap.WarnLevel)
	cache := NewCache(store, "", zap.New(core))

	require.NoError(t, store.Set(ctx, Key("bad"), []byte{0xc1, 0x00, 0xff}))
	tables, ok := cache.Load(ctx, "bad")
	assert.False(t, ok)
	assert.Nil(t, tables)
	assert.Equal(t, 1, logs.FilterMessage("snapshot decode failed, falling back to ingest").Len())
	assert.Equal(t, 1, cache.Stats().DecodeErrors)

	_, present, _ := store.Get(ctx, Key("bad"))
	assert.False(t, present)
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(NewMemoryStore(), "", nil)
	require.NoError(t, cache.Save(ctx, "a", sampleTables()))
	require.NoError(t, cache.Save(ctx, "b", sampleTables()))

	require.NoError(t, cache.Invalidate(ctx, "a"))
	_, ok := cache.Load(ctx, "a")
	assert.False(t, ok)
	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{Key("b")}, keys)
}

func TestCacheCorruptRegistryPurgesNamespace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	old := NewCache(store, "1.0.0", nil)
	require.NoError(t, old.Save(ctx, "h1", sampleTables()))
	require.NoError(t, old.Save(ctx, "h2", sampleTables()))
	require.NoError(t, store.Set(ctx, "other:key", []byte{1}))
	require.NoError(t, store.Set(ctx, RegistryKey, []byte{0xc1, 0x00}))

	core, logs := observer.New(zap.InfoLevel)
	cache := NewCache(store, "1.0.1", zap.New(core))
	purged, err := cache.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
	assert.Equal(t, 1, logs.FilterMessage("snapshot namespace purged").Len())

	keys, err := store.Keys(ctx, "snapshot:")
	require.NoError(t, err)
	assert.Equal(t, []string{RegistryKey}, keys)
	_, ok, _ := store.Get(ctx, "other:key")
	assert.True(t, ok)

	// The fresh registry tracks new saves again.
	require.NoError(t, cache.Save(ctx, "h3", sampleTables()))
	tracked, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{Key("h3")}, tracked)
}
