// Package vcontainer implements the Container Façade of spec.md §4.8: the
// single object a host embeds to get a virtual file system, a process
// table, an executor registry, and one global output stream, plus the
// surrounding image/snapshot/transport surface SPEC_FULL.md adds on top.
package vcontainer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/goombaio/namegenerator"

	"github.com/banksean/vcontainer/eventbus"
	"github.com/banksean/vcontainer/procmgr"
	"github.com/banksean/vcontainer/scriptproc"
	"github.com/banksean/vcontainer/store"
	"github.com/banksean/vcontainer/vfs"
	"github.com/banksean/vcontainer/vproc"
	"github.com/banksean/vcontainer/vproc/executor"
	"github.com/banksean/vcontainer/vshell"
)

// OutputEvent is the event name on a Container's global output bus: every
// MESSAGE emitted by any process registered in the container is
// forwarded here, tagged with its own PID, per spec.md §4.8's on_output.
const OutputEvent = "OUTPUT"

// Output is the payload delivered to on_output subscribers.
type Output struct {
	PID    int
	Stdout string
	Stderr string
}

// childOutputEvent is emitted on a parent Process's own bus when one of
// its spawned children produces output, so code observing the parent
// (e.g. a Shell builtin capturing a child's stdout) sees it without
// having to reach into the Container. It is distinct from vproc.EventMessage
// so a child's output is never mistaken for output the parent itself
// emitted.
const childOutputEvent = "CHILD_OUTPUT"

type childOutputPayload struct {
	ChildPID int
	vproc.MessagePayload
}

// Container composes the virtual file system, process table, executor
// registry, and global output stream into the single runtime object a
// host embeds, per spec.md §4.8 and SPEC_FULL.md §6.9.
type Container struct {
	InstanceID   string
	InstanceName string

	FS *vfs.FS

	// mu serializes the composite, multi-step sequences below (spawn,
	// child spawn, register_executor, store attachment) so two callers racing
	// on the same Container never interleave a PID allocation with a
	// table registration. Individual collaborators (vfs.FS, procmgr.Manager,
	// eventbus.Bus) already guard their own state, so this mutex exists
	// only to make the composite operations atomic, not to protect their
	// internals a second time.
	mu sync.Mutex

	procs     *procmgr.Manager
	executors *executor.Registry
	outputBus *eventbus.Bus
	store     *store.Store

	// cancels holds the cancel func for each running process's Execute
	// context, keyed by PID. Terminate only flips the process's lifecycle
	// state; it never touches the goroutine running Execute. A process
	// suspended in ReadInput (the interactive Shell, chiefly) would block
	// forever once Terminate marks it TERMINATED unless something also
	// cancels its context, so wireProcess releases the matching cancel
	// func on EXIT, whichever path produced it.
	cancelMu sync.Mutex
	cancels  map[int]context.CancelFunc
}

// New constructs a Container with the built-in Shell and Script
// executors registered, per spec.md §4.4, and a fresh random identity.
func New() *Container {
	fs := vfs.New()
	c := &Container{
		InstanceID:   uuid.NewString(),
		InstanceName: namegenerator.NewNameGenerator(time.Now().UnixNano()).Generate(),
		FS:           fs,
		procs:        procmgr.New(),
		executors:    executor.NewRegistry(),
		outputBus:    eventbus.New(),
		cancels:      make(map[int]context.CancelFunc),
	}
	c.executors.Register(vshell.NewExecutor(fs))
	c.executors.Register(scriptproc.NewExecutor(fs))
	slog.Info("vcontainer: instance created", "id", c.InstanceID, "name", c.InstanceName)
	return c
}

// RegisterExecutor lets a host add or override an Executor, per spec.md
// §4.8's register_executor. It is inserted ahead of the built-ins so a
// host can shadow "sh"/"node"/".js" handling if it needs to.
func (c *Container) RegisterExecutor(e executor.Executor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executors.RegisterFront(e)
}

// OnOutput subscribes to every MESSAGE emitted by any process in the
// container, present or future, per spec.md §4.8's on_output. The
// returned func removes the subscription.
func (c *Container) OnOutput(cb func(Output)) func() {
	return c.outputBus.On(OutputEvent, func(payload any) {
		cb(payload.(Output))
	})
}

// GetProcess returns the process registered under pid, if any.
func (c *Container) GetProcess(pid int) (*vproc.Process, bool) {
	return c.procs.Get(pid)
}

// ListProcesses returns every process currently in the table, ordered by
// PID.
func (c *Container) ListProcesses() []*vproc.Process {
	return c.procs.List()
}

// Children returns the PIDs of pid's direct children, ascending.
func (c *Container) Children(pid int) []int {
	return c.procs.Children(pid)
}

// Tree returns pid and every descendant PID, depth-first, pid first, per
// spec.md §4.8's tree.
func (c *Container) Tree(pid int) []int {
	return c.procs.Tree(pid)
}

// FullTree returns the forest of every root process's tree, per spec.md
// §4.8's full_tree.
func (c *Container) FullTree() [][]int {
	roots := c.procs.Roots()
	out := make([][]int, 0, len(roots))
	for _, r := range roots {
		out = append(out, c.procs.Tree(r))
	}
	return out
}

func (c *Container) wireProcess(p *vproc.Process) {
	p.Bus.On(vproc.EventMessage, func(payload any) {
		m := payload.(vproc.MessagePayload)
		c.outputBus.Emit(OutputEvent, Output{PID: p.PID, Stdout: m.Stdout, Stderr: m.Stderr})
	})
	p.Bus.On(vproc.EventSpawnChild, func(payload any) {
		sc := payload.(vproc.SpawnChildPayload)
		c.handleSpawnChild(p, sc)
	})
	p.Bus.On(vproc.EventExit, func(payload any) {
		c.releaseCancel(p.PID)
	})
}

// trackCancel records the cancel func for pid's Execute context.
func (c *Container) trackCancel(pid int, cancel context.CancelFunc) {
	c.cancelMu.Lock()
	c.cancels[pid] = cancel
	c.cancelMu.Unlock()
}

// releaseCancel invokes and forgets the cancel func for pid, if any. It is
// called once per process on EXIT, whether that EXIT came from a normal
// return out of Execute or from Terminate: either way the context is no
// longer needed, and a process still suspended in ReadInput needs the
// cancellation to actually unwind its goroutine.
func (c *Container) releaseCancel(pid int) {
	c.cancelMu.Lock()
	cancel := c.cancels[pid]
	delete(c.cancels, pid)
	c.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Spawn resolves an Executor for executable, allocates a PID, builds and
// registers the child Process, wires its output onto the container's
// global stream and its SPAWN_CHILD requests back onto this Container,
// then starts it fire-and-observe, per spec.md §4.8.
func (c *Container) Spawn(ctx context.Context, executable string, args []string, parentPID int, hasParent bool, cwd string, env map[string]string) (*vproc.Process, error) {
	c.mu.Lock()
	ex, err := c.executors.Find(executable)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNoExecutor, executable)
	}
	pid := c.procs.NextPID()
	spec := vproc.SpawnSpec{Executable: executable, Args: args, Cwd: cwd, Env: env}
	p, err := ex.Make(spec, pid, parentPID, hasParent)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.wireProcess(p)
	c.procs.Add(p)
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.trackCancel(pid, cancel)

	slog.Info("vcontainer: spawn", "pid", pid, "executable", executable, "executor", ex.Name)
	go p.Start(runCtx)
	return p, nil
}

// handleSpawnChild is the Container's SPAWN_CHILD handler, per spec.md
// §4.3/§4.8: it allocates a PID, builds the child via the Executor
// Registry, accumulates its output for the completion callback, mirrors
// it live onto the parent's own bus under childOutputEvent, and removes
// the child from the table once it reaches EXIT.
func (c *Container) handleSpawnChild(parent *vproc.Process, req vproc.SpawnChildPayload) {
	c.mu.Lock()
	ex, err := c.executors.Find(req.Spec.Executable)
	if err != nil {
		c.mu.Unlock()
		req.Callback(vproc.SpawnResult{Stderr: fmt.Sprintf("%s: command not found\n", req.Spec.Executable), ExitCode: 127})
		return
	}
	pid := c.procs.NextPID()
	child, err := ex.Make(req.Spec, pid, parent.PID, true)
	if err != nil {
		c.mu.Unlock()
		req.Callback(vproc.SpawnResult{Stderr: err.Error() + "\n", ExitCode: 1})
		return
	}
	c.procs.Add(child)
	c.wireProcess(child)
	c.mu.Unlock()

	var bufMu sync.Mutex
	var stdout, stderr strings.Builder
	child.Bus.On(vproc.EventMessage, func(payload any) {
		m := payload.(vproc.MessagePayload)
		bufMu.Lock()
		stdout.WriteString(m.Stdout)
		stderr.WriteString(m.Stderr)
		bufMu.Unlock()
		parent.Bus.Emit(childOutputEvent, childOutputPayload{ChildPID: child.PID, MessagePayload: m})
	})
	child.Bus.On(vproc.EventExit, func(payload any) {
		ep := payload.(vproc.ExitPayload)
		bufMu.Lock()
		result := vproc.SpawnResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: ep.ExitCode}
		bufMu.Unlock()
		c.procs.Remove(child.PID)
		req.Callback(result)
	})

	runCtx, cancel := context.WithCancel(context.Background())
	c.trackCancel(pid, cancel)

	slog.Info("vcontainer: spawn child", "parent_pid", parent.PID, "pid", pid, "executable", req.Spec.Executable)
	go child.Start(runCtx)
}

// TerminateTree terminates pid's descendants depth-first, then pid
// itself, removing each from the table, per spec.md §4.8's
// terminate_tree. Terminating an absent PID is a no-op (procmgr.Remove
// is idempotent, per spec.md §9).
func (c *Container) TerminateTree(pid int) {
	for _, child := range c.procs.Children(pid) {
		c.TerminateTree(child)
	}
	if p, ok := c.procs.Get(pid); ok {
		p.Terminate()
		c.procs.Remove(pid)
	}
}

// Dispose terminates every process in the container and awaits
// completion, per spec.md §4.8's dispose.
func (c *Container) Dispose(ctx context.Context) error {
	return c.procs.TerminateAll(ctx)
}
