// Package storage abstracts the location cache data lives in. The cache
// manager addresses entries with relative paths; a Backend maps those paths
// onto a local directory or an S3-compatible object store. The concrete
// backend is chosen once, from the configured folder's URI scheme, and the
// caller never branches on which one is active.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnavailable indicates a backend I/O failure: permission problems, an
// unreachable endpoint, a full disk. Callers surface it directly rather than
// retrying. Absence of a path is reported as fs.ErrNotExist, not as
// ErrUnavailable.
var ErrUnavailable = errors.New("storage backend unavailable")

// s3Scheme prefixes cache folders that live in an object store.
const s3Scheme = "s3://"

// Backend is the capability set the cache manager needs. All paths are
// relative to the backend root (the configured cache folder); Join builds
// them with the backend's separator.
type Backend interface {
	// ReadFile returns the contents at path. Missing paths report
	// fs.ErrNotExist.
	ReadFile(path string) ([]byte, error)

	// WriteFile stores data at path, creating parent directories as needed.
	// The write is atomic where the backend supports it.
	WriteFile(path string, data []byte) error

	// ListDirs returns the names of immediate child directories under path,
	// sorted ascending. A missing path yields an empty list, not an error.
	ListDirs(path string) ([]string, error)

	// RemoveAll deletes path and everything under it. Missing paths are a
	// no-op. An empty path removes the backend root's contents.
	RemoveAll(path string) error

	// Exists reports whether path exists, without reading its contents.
	Exists(path string) (bool, error)

	// Join combines path elements using the backend's separator.
	Join(parts ...string) string
}

// Resolve picks a backend for the configured cache folder. Folders with an
// s3:// scheme get the object-store backend; everything else is treated as a
// local directory (with ~ expanded). The local directory is not created
// here; backends create paths lazily on first write.
func Resolve(folder string) (Backend, error) {
	if folder == "" {
		return nil, errors.New("cache folder cannot be empty")
	}

	if strings.HasPrefix(folder, s3Scheme) {
		return NewS3BackendFromURI(folder)
	}

	root, err := expandPath(folder)
	if err != nil {
		return nil, err
	}
	return NewLocalBackend(root), nil
}

// expandPath resolves a leading ~ to the user home directory and makes the
// path absolute.
func expandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving cache folder %q: %w", p, err)
	}
	return abs, nil
}

// unavailable wraps a backend I/O failure so callers can match
// storage.ErrUnavailable while keeping the underlying cause inspectable.
func unavailable(op, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrUnavailable, err)
}
