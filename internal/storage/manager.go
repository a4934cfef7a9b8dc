package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned for unknown map file ids.
var ErrNotFound = errors.New("map file not found")

const (
	indexFile = "index.msgpack"
	sniffSize = 512
)

// Store defines the interface for map file storage.
type Store interface {
	Save(name string, r io.Reader) (*models.MapFile, error)
	Get(id string) (*models.MapFile, error)
	List(limit int) ([]*models.MapFile, error)
	Delete(id string) error
	Rename(id string, newName string) (*models.MapFile, error)
	GetFilePath(id string) (string, error)
	SaveChunk(uploadID string, chunkIndex int, r io.Reader) error
	CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.MapFile, error)
}

// FormatDetector names the payload format from the head of a file, or
// returns "" when unknown.
type FormatDetector func(head []byte) string

// LocalStore implements Store using the local filesystem. File metadata is
// kept in an index next to the files so uploads survive a restart.
type LocalStore struct {
	mu        sync.RWMutex
	uploadDir string
	detect    FormatDetector
	files     map[string]*models.MapFile
}

// NewLocalStore creates a new LocalStore and loads its index. detect may
// be nil.
func NewLocalStore(uploadDir string, detect FormatDetector) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	s := &LocalStore{
		uploadDir: uploadDir,
		detect:    detect,
		files:     make(map[string]*models.MapFile),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.uploadDir, indexFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}
	var files []*models.MapFile
	if err := msgpack.Unmarshal(data, &files); err != nil {
		return fmt.Errorf("decoding index: %w", err)
	}
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(s.uploadDir, f.ID)); err == nil {
			s.files[f.ID] = f
		}
	}
	return nil
}

// saveIndexLocked writes the index; callers hold s.mu.
func (s *LocalStore) saveIndexLocked() error {
	files := make([]*models.MapFile, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, f)
	}
	data, err := msgpack.Marshal(files)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	tmp := filepath.Join(s.uploadDir, indexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.uploadDir, indexFile)); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Save saves a map file to the local filesystem.
func (s *LocalStore) Save(name string, r io.Reader) (*models.MapFile, error) {
	id := uuid.New().String()
	path := filepath.Join(s.uploadDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(r, sniffSize)
	head, _ := br.Peek(sniffSize)
	format := s.format(head)

	size, err := io.Copy(f, br)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	return s.register(&models.MapFile{
		ID:         id,
		Name:       name,
		Size:       size,
		Format:     format,
		UploadedAt: time.Now(),
	})
}

func (s *LocalStore) format(head []byte) string {
	if s.detect == nil || len(head) == 0 {
		return ""
	}
	return s.detect(head)
}

func (s *LocalStore) register(info *models.MapFile) (*models.MapFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[info.ID] = info
	if err := s.saveIndexLocked(); err != nil {
		return nil, err
	}
	c := *info
	return &c, nil
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.MapFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := *info
	return &c, nil
}

// List returns the most recent files.
func (s *LocalStore) List(limit int) ([]*models.MapFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.MapFile, 0, len(s.files))
	for _, info := range s.files {
		c := *info
		list = append(list, &c)
	}

	// Sort by UploadedAt desc
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete removes a file from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path := filepath.Join(s.uploadDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	return s.saveIndexLocked()
}

// Rename updates the display name of a file.
func (s *LocalStore) Rename(id string, newName string) (*models.MapFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	info.Name = newName
	if err := s.saveIndexLocked(); err != nil {
		return nil, err
	}
	c := *info
	return &c, nil
}

// GetFilePath returns the path to a file.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return filepath.Join(s.uploadDir, id), nil
}

// SaveChunk saves a single chunk to a temporary location.
func (s *LocalStore) SaveChunk(uploadID string, chunkIndex int, r io.Reader) error {
	if _, err := uuid.Parse(uploadID); err != nil {
		return fmt.Errorf("invalid upload id %q: %w", uploadID, err)
	}
	chunkDir := filepath.Join(s.uploadDir, "chunks", uploadID)
	if err := os.MkdirAll(chunkDir, 0755); err != nil {
		return fmt.Errorf("creating chunk directory: %w", err)
	}

	path := filepath.Join(chunkDir, fmt.Sprintf("chunk_%d", chunkIndex))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chunk file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("writing chunk: %w", err)
	}
	return nil
}

// CompleteChunkedUpload assembles all chunks into a final file.
func (s *LocalStore) CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.MapFile, error) {
	if _, err := uuid.Parse(uploadID); err != nil {
		return nil, fmt.Errorf("invalid upload id %q: %w", uploadID, err)
	}
	id := uuid.New().String()
	finalPath := filepath.Join(s.uploadDir, id)
	chunkDir := filepath.Join(s.uploadDir, "chunks", uploadID)

	out, err := os.Create(finalPath)
	if err != nil {
		return nil, fmt.Errorf("creating final file: %w", err)
	}
	defer out.Close()

	var totalSize int64
	var head []byte
	for i := 0; i < totalChunks; i++ {
		chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%d", i))
		in, err := os.Open(chunkPath)
		if err != nil {
			out.Close()
			os.Remove(finalPath)
			return nil, fmt.Errorf("opening chunk %d: %w", i, err)
		}

		br := bufio.NewReaderSize(in, sniffSize)
		if len(head) < sniffSize {
			peek, _ := br.Peek(sniffSize - len(head))
			head = append(head, peek...)
		}
		n, err := io.Copy(out, br)
		in.Close()
		if err != nil {
			out.Close()
			os.Remove(finalPath)
			return nil, fmt.Errorf("copying chunk %d: %w", i, err)
		}
		totalSize += n
	}

	info, err := s.register(&models.MapFile{
		ID:         id,
		Name:       name,
		Size:       totalSize,
		Format:     s.format(head),
		UploadedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	// Cleanup chunks
	os.RemoveAll(chunkDir)
	return info, nil
}
