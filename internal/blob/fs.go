package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FS stores objects as files under a root directory. Keys map to relative
// paths; resolved URLs use the file scheme. Suitable for a single-machine
// deployment and for tests.
type FS struct {
	root string
}

// NewFS creates a filesystem store rooted at dir.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	return &FS{root: abs}, nil
}

func (f *FS) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create dir for %q: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

func (f *FS) ResolveURL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(f.root, filepath.FromSlash(key))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat %q: %w", key, err)
	}
	return "file://" + filepath.ToSlash(path), nil
}

// Get reads an object back. Not part of the Store contract; used by hosts
// that serve local media directly and by round-trip tests.
func (f *FS) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}
