// mock_storage.go - Mock storage implementation for testing
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/storage"
)

// MockStorage implements storage.Store in memory. Files are also written
// to a temp directory so sessions can load them by path.
type MockStorage struct {
	mu       sync.RWMutex
	dir      string
	files    map[string]*models.MapFile
	fileData map[string][]byte
	chunks   map[string]map[int][]byte // uploadID -> chunkIndex -> data
	nextID   int

	// Format is recorded on every saved file. Empty means unrecognised.
	Format string
	// SaveErr, when set, fails every Save and CompleteChunkedUpload.
	SaveErr error
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// NewMockStorage creates a mock storage writing into dir.
func NewMockStorage(dir string) *MockStorage {
	return &MockStorage{
		dir:      dir,
		files:    make(map[string]*models.MapFile),
		fileData: make(map[string][]byte),
		chunks:   make(map[string]map[int][]byte),
		Format:   "json",
	}
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.MapFile, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(name, data)
}

func (m *MockStorage) addLocked(name string, data []byte) (*models.MapFile, error) {
	m.nextID++
	id := fmt.Sprintf("test-id-%d", m.nextID)
	if err := os.WriteFile(filepath.Join(m.dir, id), data, 0o644); err != nil {
		return nil, err
	}
	file := &models.MapFile{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		Format:     m.Format,
		UploadedAt: time.Now().Add(time.Duration(m.nextID) * time.Millisecond),
	}
	m.files[id] = file
	m.fileData[id] = data
	cp := *file
	return &cp, nil
}

func (m *MockStorage) Get(id string) (*models.MapFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *file
	return &cp, nil
}

func (m *MockStorage) List(limit int) ([]*models.MapFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*models.MapFile, 0, len(m.files))
	for _, file := range m.files {
		cp := *file
		files = append(files, &cp)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return os.Remove(filepath.Join(m.dir, id))
}

func (m *MockStorage) Rename(id string, newName string) (*models.MapFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	file.Name = newName
	cp := *file
	return &cp, nil
}

func (m *MockStorage) GetFilePath(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[id]; !ok {
		return "", storage.ErrNotFound
	}
	return filepath.Join(m.dir, id), nil
}

func (m *MockStorage) SaveChunk(uploadID string, chunkIndex int, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks[uploadID] == nil {
		m.chunks[uploadID] = make(map[int][]byte)
	}
	m.chunks[uploadID][chunkIndex] = data
	return nil
}

func (m *MockStorage) CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.MapFile, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	uploadChunks, ok := m.chunks[uploadID]
	if !ok {
		return nil, fmt.Errorf("upload not found: %s", uploadID)
	}
	var data bytes.Buffer
	for i := 0; i < totalChunks; i++ {
		chunk, ok := uploadChunks[i]
		if !ok {
			return nil, fmt.Errorf("missing chunk %d", i)
		}
		data.Write(chunk)
	}
	delete(m.chunks, uploadID)
	return m.addLocked(name, data.Bytes())
}

// Test Helper Methods

// AddFile stores data directly, bypassing SaveErr.
func (m *MockStorage) AddFile(name string, data []byte) *models.MapFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, err := m.addLocked(name, data)
	if err != nil {
		panic(fmt.Sprintf("failed to write test file: %v", err))
	}
	return file
}

// GetFileCount returns the number of stored files
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
