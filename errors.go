package vcontainer

import "errors"

// ErrNoExecutor is returned by Spawn when no registered Executor accepts
// the requested executable, per spec.md §4.8.
var ErrNoExecutor = errors.New("vcontainer: no executor accepts executable")

// ErrProcessNotFound is returned by operations addressing a PID absent
// from the process table.
var ErrProcessNotFound = errors.New("vcontainer: process not found")
