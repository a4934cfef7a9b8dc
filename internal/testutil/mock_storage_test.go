package testutil

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/agv-mapview/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStorage(t *testing.T) {
	m := NewMockStorage(t.TempDir())

	first, err := m.Save("a.json", strings.NewReader(SiteMap))
	require.NoError(t, err)
	assert.Equal(t, "json", first.Format)
	second := m.AddFile("b.json", []byte("{}"))

	files, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, second.ID, files[0].ID)

	path, err := m.GetFilePath(first.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, SiteMap, string(data))

	require.NoError(t, m.Delete(first.ID))
	assert.ErrorIs(t, m.Delete(first.ID), storage.ErrNotFound)
	assert.Equal(t, 1, m.GetFileCount())
}

func TestMockStorageChunksAndErrors(t *testing.T) {
	m := NewMockStorage(t.TempDir())
	require.NoError(t, m.SaveChunk("u", 1, bytes.NewReader([]byte("world"))))
	require.NoError(t, m.SaveChunk("u", 0, bytes.NewReader([]byte("hello "))))

	file, err := m.CompleteChunkedUpload("u", "greeting", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(11), file.Size)

	m.SaveErr = errors.New("disk full")
	_, err = m.Save("c.json", strings.NewReader("{}"))
	assert.ErrorIs(t, err, m.SaveErr)
}

func TestWriteSiteMap(t *testing.T) {
	data, err := os.ReadFile(WriteSiteMap(t))
	require.NoError(t, err)
	assert.Equal(t, SiteMap, string(data))
}
