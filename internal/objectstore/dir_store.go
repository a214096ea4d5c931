package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that would escape the store directory.
var ErrInvalidKey = errors.New("invalid object key")

// DirStore implements core.VoiceStore over a read-only directory, such as a
// network volume mounted into the handler.
type DirStore struct {
	root string
}

// NewDirStore creates a DirStore rooted at dir. The directory must exist.
func NewDirStore(dir string) (*DirStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open voice directory '%s': %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("voice directory '%s' is not a directory", dir)
	}

	return &DirStore{root: dir}, nil
}

// Exists reports whether key names a regular file in the directory.
func (d *DirStore) Exists(_ context.Context, key string) (bool, error) {
	path, err := d.path(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat object '%s': %w", key, err)
	}

	return info.Mode().IsRegular(), nil
}

// Download reads the file named key.
func (d *DirStore) Download(_ context.Context, key string) ([]byte, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s' from '%s': %w", key, d.root, err)
	}

	return data, nil
}

func (d *DirStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return filepath.Join(d.root, key), nil
}
