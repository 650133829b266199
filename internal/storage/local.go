package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Directory and file modes for cache data. Entries may hold tenant data, so
// group/other access is kept off the files.
const (
	localDirPerm  = 0750
	localFilePerm = 0600
)

// LocalBackend stores cache data under a directory on the local filesystem.
type LocalBackend struct {
	root string
}

// NewLocalBackend returns a backend rooted at dir. The directory is created
// lazily on first write.
func NewLocalBackend(dir string) *LocalBackend {
	return &LocalBackend{root: dir}
}

// Root returns the absolute directory this backend writes under.
func (b *LocalBackend) Root() string {
	return b.root
}

func (b *LocalBackend) abs(path string) string {
	if path == "" {
		return b.root
	}
	return filepath.Join(b.root, path)
}

// ReadFile returns the file contents at path. A missing file surfaces the
// os *PathError, which matches fs.ErrNotExist.
func (b *LocalBackend) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(b.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, unavailable("read", path, err)
	}
	return data, nil
}

// WriteFile writes data at path atomically: the bytes land in a temp file in
// the target directory first and are renamed into place, so readers never
// observe a partial entry.
func (b *LocalBackend) WriteFile(path string, data []byte) error {
	target := b.abs(path)
	dir := filepath.Dir(target)

	if err := os.MkdirAll(dir, localDirPerm); err != nil {
		return unavailable("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return unavailable("write", path, err)
	}
	tmpPath := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return unavailable("write", path, err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return unavailable("write", path, err)
	}
	if err = os.Chmod(tmpPath, localFilePerm); err != nil {
		_ = os.Remove(tmpPath)
		return unavailable("write", path, err)
	}

	if err = os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return unavailable("write", path, err)
	}
	return nil
}

// ListDirs returns the immediate child directories of path, sorted. A path
// that does not exist yields an empty list.
func (b *LocalBackend) ListDirs(path string) ([]string, error) {
	entries, err := os.ReadDir(b.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, unavailable("list", path, err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// RemoveAll deletes path and its children. Deleting something that is not
// there is a no-op. An empty path clears the backend root.
func (b *LocalBackend) RemoveAll(path string) error {
	if err := os.RemoveAll(b.abs(path)); err != nil {
		return unavailable("remove", path, err)
	}
	return nil
}

// Exists reports whether path exists without reading it.
func (b *LocalBackend) Exists(path string) (bool, error) {
	_, err := os.Stat(b.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, unavailable("stat", path, err)
}

// Join combines path elements with the OS separator.
func (b *LocalBackend) Join(parts ...string) string {
	return filepath.Join(parts...)
}

// String identifies the backend in logs.
func (b *LocalBackend) String() string {
	return fmt.Sprintf("local(%s)", b.root)
}

var _ Backend = (*LocalBackend)(nil)
