package vfs

import "errors"

// Sentinel errors satisfying errors.Is, per spec.md §7's error taxonomy.
var (
	ErrNotFound      = errors.New("not found")
	ErrFileExists    = errors.New("file exists")
	ErrIsADirectory  = errors.New("is a directory")
	ErrNotADirectory = errors.New("not a directory")
	ErrNotEmpty      = errors.New("directory not empty")
)

// ModuleNotFoundError carries the specifier and resolved path that failed
// to resolve to an existing file, per spec.md §4.1 step 5.
type ModuleNotFoundError struct {
	Specifier string
	Resolved  string
}

func (e *ModuleNotFoundError) Error() string {
	return "module not found: " + e.Specifier + " (resolved " + e.Resolved + ")"
}

// Is allows errors.Is(err, ErrModuleNotFound) to match any *ModuleNotFoundError.
func (e *ModuleNotFoundError) Is(target error) bool {
	return target == ErrModuleNotFound
}

// ErrModuleNotFound is the sentinel matched by errors.Is against any
// *ModuleNotFoundError value.
var ErrModuleNotFound = errors.New("module not found")
