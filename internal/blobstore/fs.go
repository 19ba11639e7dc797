package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// recentWindow is how long a store-initiated removal is remembered so the
// integrity watcher can tell it apart from an out-of-band one.
const recentWindow = 5 * time.Second

// FS implements Provider backed by a flat directory where each object key
// is a file name.
type FS struct {
	root string // absolute path to the object directory

	mu      sync.Mutex
	removed map[string]time.Time // keys removed through the store recently
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blobstore: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("blobstore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blobstore: root is not a directory: %s", abs)
	}
	return &FS{root: abs, removed: make(map[string]time.Time)}, nil
}

// safeKey validates that key is a plain file name (no separators, no
// traversal) and returns the absolute object path.
func (f *FS) safeKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blobstore: empty key")
	}
	cleaned := filepath.Clean(key)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("blobstore: invalid key: %s", key)
	}
	return filepath.Join(f.root, cleaned), nil
}

// Create opens a fresh object for writing. O_EXCL guarantees create-new-only.
func (f *FS) Create(key string) (io.WriteCloser, error) {
	abs, err := f.safeKey(key)
	if err != nil {
		return nil, err
	}
	w, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blobstore: create %s: %w", key, err)
	}
	return w, nil
}

// Open returns a reader over the object and its size.
func (f *FS) Open(key string) (io.ReadCloser, int64, error) {
	abs, err := f.safeKey(key)
	if err != nil {
		return nil, 0, err
	}
	r, err := os.Open(abs)
	if err != nil {
		return nil, 0, fmt.Errorf("blobstore: open %s: %w", key, err)
	}
	info, err := r.Stat()
	if err != nil {
		r.Close()
		return nil, 0, fmt.Errorf("blobstore: stat %s: %w", key, err)
	}
	return r, info.Size(), nil
}

// Size returns the on-disk size of the object.
func (f *FS) Size(key string) (int64, error) {
	abs, err := f.safeKey(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("blobstore: stat %s: %w", key, err)
	}
	return info.Size(), nil
}

// Remove deletes the object. A missing object is not an error.
func (f *FS) Remove(key string) error {
	abs, err := f.safeKey(key)
	if err != nil {
		return err
	}
	f.markRemoved(key)
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("blobstore: remove %s: %w", key, err)
	}
	return nil
}

func (f *FS) markRemoved(key string) {
	now := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, at := range f.removed {
		if now.Sub(at) > recentWindow {
			delete(f.removed, k)
		}
	}
	f.removed[key] = now
}

// recentlyRemoved reports whether key was removed through the store within
// the recent window.
func (f *FS) recentlyRemoved(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.removed[key]
	return ok && time.Since(at) <= recentWindow
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
