package floorplan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is the persistence boundary for learning samples and cached
// artifacts. The engine does not care whether it is backed by a
// filesystem, an embedded KV store, or a remote service.
type Store interface {
	// Get returns the bytes for a key. Missing keys return ok=false with
	// a nil error.
	Get(key string) (data []byte, ok bool, err error)
	// Set writes the bytes for a key, creating it if needed.
	Set(key string, data []byte) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
}

// FileStore persists each key as one file under a base directory. Key
// separators map to subdirectories.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(key string) string {
	clean := strings.ReplaceAll(key, "..", "")
	return filepath.Join(fs.dir, filepath.FromSlash(clean)+".json")
}

// Get reads a key's file. A missing file is a missing key, not an error.
func (fs *FileStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(fs.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading store key %q: %w", key, err)
	}
	return data, true, nil
}

// Set writes a key's file, creating parent directories as needed. The
// write is flushed before Set returns.
func (fs *FileStore) Set(key string, data []byte) error {
	p := fs.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating store subdirectory: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("writing store key %q: %w", key, err)
	}
	return nil
}

// Delete removes a key's file.
func (fs *FileStore) Delete(key string) error {
	err := os.Remove(fs.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting store key %q: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests and single-shot runs.
type MemoryStore struct {
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (ms *MemoryStore) Get(key string) ([]byte, bool, error) {
	d, ok := ms.data[key]
	return d, ok, nil
}

func (ms *MemoryStore) Set(key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	ms.data[key] = cp
	return nil
}

func (ms *MemoryStore) Delete(key string) error {
	delete(ms.data, key)
	return nil
}
