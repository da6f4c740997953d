// Package executor implements the Executor Registry of spec.md §4.4: an
// ordered list of capability predicates and constructors that the
// Container consults to turn an executable identifier into a Process.
package executor

import (
	"errors"

	"github.com/banksean/vcontainer/vproc"
)

// ErrNoExecutor is returned by Find when no registered Executor accepts
// the given executable.
var ErrNoExecutor = errors.New("no executor accepts executable")

// Executor is a factory identified by a capability predicate and a
// constructor, per spec.md §3.
type Executor struct {
	// Name is a human-readable label used only for logging/diagnostics.
	Name string
	// Accepts reports whether this Executor can build a Process for
	// executablePath.
	Accepts func(executablePath string) bool
	// Make constructs the Process. spec carries the spawn's executable,
	// argument vector, cwd and env; pid/parentPID/hasParent identify the new process's place in the
	// process table.
	Make func(spec vproc.SpawnSpec, pid, parentPID int, hasParent bool) (*vproc.Process, error)
}

// Registry holds an ordered list of Executors. Registration order is
// insertion order; Find returns the first match.
type Registry struct {
	executors []Executor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends executor to the end of the search order.
func (r *Registry) Register(e Executor) {
	r.executors = append(r.executors, e)
}

// RegisterFront inserts executor ahead of every previously registered
// Executor, letting callers override built-ins, per spec.md §4.4 ("callers
// may re-register to override").
func (r *Registry) RegisterFront(e Executor) {
	r.executors = append([]Executor{e}, r.executors...)
}

// Find returns the first registered Executor whose Accepts predicate is
// true for executablePath, or ErrNoExecutor.
func (r *Registry) Find(executablePath string) (Executor, error) {
	for _, e := range r.executors {
		if e.Accepts(executablePath) {
			return e, nil
		}
	}
	return Executor{}, ErrNoExecutor
}
