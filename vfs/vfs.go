// Package vfs implements the in-memory, hierarchical virtual file system
// described in spec.md §4.1: files and directories share one name-space,
// every path has its ancestors materialized as directories, and module
// resolution walks relative specifiers the way a CommonJS-ish loader would.
package vfs

import (
	"sort"
	"strings"
	"sync"

	"github.com/banksean/vcontainer/vpath"
)

// FS is a single virtual file system instance. The zero value is not
// usable; use New.
type FS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// New returns an FS containing only the root directory.
func New() *FS {
	return &FS{
		files: make(map[string][]byte),
		dirs:  map[string]struct{}{vpath.Root: {}},
	}
}

// WriteFile creates or replaces the file at path, auto-creating any
// missing ancestor directories. It fails with ErrIsADirectory if path
// names an existing directory.
func (f *FS) WriteFile(path string, content []byte) error {
	p := vpath.Normalize(path)
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, isDir := f.dirs[p]; isDir {
		return &PathError{Op: "write_file", Path: p, Err: ErrIsADirectory}
	}
	f.ensureAncestors(p)
	buf := make([]byte, len(content))
	copy(buf, content)
	f.files[p] = buf
	return nil
}

// ReadFile returns the content stored at path, or ErrNotFound.
func (f *FS) ReadFile(path string) ([]byte, error) {
	p := vpath.Normalize(path)
	f.mu.RLock()
	defer f.mu.RUnlock()

	content, ok := f.files[p]
	if !ok {
		return nil, &PathError{Op: "read_file", Path: p, Err: ErrNotFound}
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// DeleteFile removes a file. recursive has no effect for files, matching
// spec.md §4.1 ("recursive-flag has no effect for files").
func (f *FS) DeleteFile(path string, recursive bool) error {
	p := vpath.Normalize(path)
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[p]; !ok {
		return &PathError{Op: "delete_file", Path: p, Err: ErrNotFound}
	}
	delete(f.files, p)
	return nil
}

// ListFiles enumerates every file path. Order is unspecified by contract;
// callers that need determinism should sort the result themselves.
func (f *FS) ListFiles() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.files))
	for p := range f.files {
		out = append(out, p)
	}
	return out
}

// ListDirectories enumerates every directory path, including the root.
// Order is unspecified by contract; callers that need determinism should
// sort the result themselves.
func (f *FS) ListDirectories() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.dirs))
	for p := range f.dirs {
		out = append(out, p)
	}
	return out
}

// CreateDirectory creates path and any missing ancestors. It is a no-op
// if path is already a directory, and fails with ErrFileExists if a file
// occupies that path.
func (f *FS) CreateDirectory(path string) error {
	p := vpath.Normalize(path)
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, isFile := f.files[p]; isFile {
		return &PathError{Op: "create_directory", Path: p, Err: ErrFileExists}
	}
	if _, ok := f.dirs[p]; ok {
		return nil
	}
	f.ensureAncestors(p)
	f.dirs[p] = struct{}{}
	return nil
}

// DeleteDirectory removes an empty directory.
func (f *FS) DeleteDirectory(path string) error {
	p := vpath.Normalize(path)
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.dirs[p]; !ok {
		return &PathError{Op: "delete_directory", Path: p, Err: ErrNotFound}
	}
	if p == vpath.Root {
		return &PathError{Op: "delete_directory", Path: p, Err: ErrNotEmpty}
	}
	if f.hasChildrenLocked(p) {
		return &PathError{Op: "delete_directory", Path: p, Err: ErrNotEmpty}
	}
	delete(f.dirs, p)
	return nil
}

// ListDirectory returns the sorted, immediate children of path. Directory
// names are suffixed with "/" so callers can distinguish them from files.
func (f *FS) ListDirectory(path string) ([]string, error) {
	p := vpath.Normalize(path)
	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, ok := f.dirs[p]; !ok {
		return nil, &PathError{Op: "list_directory", Path: p, Err: ErrNotFound}
	}

	seen := map[string]struct{}{}
	var out []string
	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	for fp := range f.files {
		if name, ok := immediateChild(prefix, p, fp); ok {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	for dp := range f.dirs {
		if dp == p {
			continue
		}
		if name, ok := immediateChild(prefix, p, dp); ok {
			name += "/"
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// IsDirectory reports whether path names a directory.
func (f *FS) IsDirectory(path string) bool {
	p := vpath.Normalize(path)
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.dirs[p]
	return ok
}

// Exists reports whether path names either a file or a directory.
func (f *FS) Exists(path string) bool {
	p := vpath.Normalize(path)
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.files[p]; ok {
		return true
	}
	_, ok := f.dirs[p]
	return ok
}

// immediateChild reports whether fp is an immediate child of dir (given
// its "/"-suffixed prefix), returning its base name.
func immediateChild(prefix, dir, fp string) (string, bool) {
	if dir == "/" {
		if fp == "/" || !strings.HasPrefix(fp, "/") {
			return "", false
		}
		rest := strings.TrimPrefix(fp, "/")
		if rest == "" || strings.Contains(rest, "/") {
			return "", false
		}
		return rest, true
	}
	if !strings.HasPrefix(fp, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(fp, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// ensureAncestors materializes every strict ancestor of p as a directory.
// Callers must hold f.mu for writing.
func (f *FS) ensureAncestors(p string) {
	dir := vpath.Dirname(p)
	for dir != vpath.Root {
		if _, ok := f.dirs[dir]; ok {
			break
		}
		f.dirs[dir] = struct{}{}
		dir = vpath.Dirname(dir)
	}
	f.dirs[vpath.Root] = struct{}{}
}

func (f *FS) hasChildrenLocked(dir string) bool {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	for fp := range f.files {
		if strings.HasPrefix(fp, prefix) {
			return true
		}
	}
	for dp := range f.dirs {
		if dp != dir && strings.HasPrefix(dp, prefix) {
			return true
		}
	}
	return false
}

// PathError is the concrete error type returned by every VFS operation;
// it wraps one of the sentinel errors in this package and is compatible
// with errors.Is/errors.As.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error { return e.Err }
