package vproc

import "errors"

// ErrInvalidState is returned when an operation is attempted against a
// Process in a state that forbids it (e.g. writing input to a process
// that is not RUNNING), per spec.md §7.
var ErrInvalidState = errors.New("invalid process state")
