package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuckStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "snapshots", "cache.duckdb")

	store, err := NewDuckStore(dbPath, DuckOptions{})
	require.NoError(t, err)
	assert.Equal(t, dbPath, store.Path())

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte{1, 2, 3}))
	require.NoError(t, store.Set(ctx, "k", []byte{4, 5}))
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{4, 5}, v)

	require.NoError(t, store.Set(ctx, "snapshot:b", []byte{1}))
	require.NoError(t, store.Set(ctx, "snapshot:a", []byte{2}))
	keys, err := store.Keys(ctx, "snapshot:")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshot:a", "snapshot:b"}, keys)
	require.NoError(t, store.Remove(ctx, "snapshot:a"))
	require.NoError(t, store.Remove(ctx, "snapshot:b"))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, store.Close())

	t.Run("persists across reopen", func(t *testing.T) {
		reopened, err := NewDuckStore(dbPath, DuckOptions{Threads: 1})
		require.NoError(t, err)
		defer reopened.Close()

		v, ok, err := reopened.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte{4, 5}, v)

		require.NoError(t, reopened.Remove(ctx, "k"))
		require.NoError(t, reopened.Remove(ctx, "k"))
		_, ok, _ = reopened.Get(ctx, "k")
		assert.False(t, ok)
	})
}

func TestDuckStoreBacksCache(t *testing.T) {
	ctx := context.Background()
	store, err := NewDuckStore("", DuckOptions{})
	require.NoError(t, err)
	defer store.Close()

	cache := NewCache(store, "", nil)
	require.NoError(t, cache.Save(ctx, "h", sampleTables()))
	tables, ok := cache.Load(ctx, "h")
	require.True(t, ok)
	assert.Len(t, tables.Parks, 1)
}
