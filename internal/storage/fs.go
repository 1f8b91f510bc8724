package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/schemasync/internal/apperr"
)

const tempPattern = ".schemasync-tmp-*"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the migration directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: %w: %s", apperr.ErrDirectoryNotFound, abs)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %w: not a directory: %s", apperr.ErrDirectoryNotFound, abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a path against the root and rejects any result that
// escapes it (directory traversal).
func (f *FS) safePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	joined := filepath.Clean(p)
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(f.root, joined)
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes migration root: %s", p)
	}
	return abs, nil
}

// Read returns the raw bytes of a migration file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: %w: read %s: %w", apperr.ErrIO, path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → chmod → fsync → rename.
// An existing file keeps its permission bits; new files get 0644.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}

	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(abs); statErr == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("storage: %w: create temp: %w", apperr.ErrIO, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: %w: write temp: %w", apperr.ErrIO, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("storage: %w: chmod temp: %w", apperr.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: %w: fsync: %w", apperr.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: %w: close temp: %w", apperr.ErrIO, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: %w: rename: %w", apperr.ErrIO, err)
	}
	success = true
	return nil
}
