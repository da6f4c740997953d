// Package vproc implements the abstract process lifecycle state machine
// shared by every concrete process kind (shell, script): lifecycle
// transitions, input queuing, and event emission, per spec.md §4.3.
package vproc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/banksean/vcontainer/eventbus"
)

// Subclass is implemented by concrete process kinds. Execute runs until
// the process's work is done or ctx is cancelled; a non-nil error marks
// the process FAILED. OnTerminate is invoked once, synchronously, when
// Terminate is called against a RUNNING process, so the subclass can
// release resources (e.g. dispose an interpreter) immediately.
type Subclass interface {
	Execute(ctx context.Context, p *Process) error
	OnTerminate(p *Process)
}

// Process is the lifecycle state machine, input queue, and event bus
// common to every process kind in the container, per spec.md §3/§4.3.
type Process struct {
	PID            int
	ParentPID      int
	HasParent      bool
	Type           Type
	ExecutablePath string
	Args           []string
	Cwd            string
	Env            map[string]string
	Name           string

	Bus *eventbus.Bus

	mu         sync.Mutex
	state      State
	exitCode   int
	startTime  time.Time
	endTime    time.Time
	terminated bool

	input        chan []byte
	exitOverride *int

	subclass Subclass
}

// New constructs a Process in the CREATED state. subclass provides the
// Execute/OnTerminate hooks for the concrete process kind.
func New(pid int, parentPID int, hasParent bool, typ Type, executablePath string, args []string, cwd string, env map[string]string, subclass Subclass) *Process {
	return &Process{
		PID:            pid,
		ParentPID:      parentPID,
		HasParent:      hasParent,
		Type:           typ,
		ExecutablePath: executablePath,
		Args:           args,
		Cwd:            cwd,
		Env:            env,
		Bus:            eventbus.New(),
		state:          StateCreated,
		input:          make(chan []byte, 64),
		subclass:       subclass,
	}
}

// State returns the process's current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ExitCode returns the process's exit code. spec.md §3 leaves it
// unobservable before a terminal state, so the second result is false
// (and the code 0) until State().IsTerminal() is true.
func (p *Process) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.IsTerminal() {
		return 0, false
	}
	return p.exitCode, true
}

// StartTime and EndTime report the process's lifecycle timestamps. EndTime
// is the zero time until a terminal transition has occurred.
func (p *Process) StartTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startTime
}

func (p *Process) EndTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endTime
}

// Start transitions CREATED -> RUNNING, emits START, runs the subclass's
// Execute to completion, and then resolves the terminal transition:
// COMPLETED/exit 0 on a clean return, FAILED/exit 1 if Execute returned an
// error (ERROR is emitted first), unless Terminate already claimed the
// terminal transition. Start is only legal from CREATED.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateCreated {
		p.mu.Unlock()
		return fmt.Errorf("%w: start requires CREATED, have %s", ErrInvalidState, p.state)
	}
	p.state = StateRunning
	p.startTime = time.Now()
	p.mu.Unlock()

	p.Bus.Emit(EventStart, struct{}{})

	err := p.subclass.Execute(ctx, p)

	p.mu.Lock()
	if p.terminated {
		// Terminate already resolved the terminal state and emitted EXIT.
		p.mu.Unlock()
		return nil
	}
	p.endTime = time.Now()
	if err != nil {
		p.state = StateFailed
		p.exitCode = 1
	} else {
		p.state = StateCompleted
		if p.exitOverride != nil {
			p.exitCode = *p.exitOverride
		} else {
			p.exitCode = 0
		}
	}
	uptime := p.endTime.Sub(p.startTime)
	exitCode := p.exitCode
	pid := p.PID
	p.mu.Unlock()

	if err != nil {
		p.Bus.Emit(EventError, ErrorPayload{Err: err})
	}
	p.Bus.Emit(EventExit, ExitPayload{PID: pid, ExitCode: exitCode, Uptime: uptime})
	return err
}

// Terminate transitions a RUNNING process straight to TERMINATED with
// exit code -1, invoking the subclass's OnTerminate hook and emitting
// EXIT. It is idempotent: calling it against a non-RUNNING process is a
// no-op, and it is safe to race against a normal completion in Start —
// the terminated flag ensures only one of the two paths emits EXIT.
func (p *Process) Terminate() {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return
	}
	p.terminated = true
	p.endTime = time.Now()
	p.state = StateTerminated
	p.exitCode = -1
	uptime := p.endTime.Sub(p.startTime)
	pid := p.PID
	p.mu.Unlock()

	p.subclass.OnTerminate(p)

	p.Bus.Emit(EventExit, ExitPayload{PID: pid, ExitCode: -1, Uptime: uptime})
}

// WriteInput enqueues bytes into the process's input buffer, resuming a
// waiting reader if one is blocked in ReadInput. It fails if the process
// is not RUNNING.
func (p *Process) WriteInput(data []byte) error {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return fmt.Errorf("%w: write_input requires RUNNING, have %s", ErrInvalidState, p.state)
	}
	p.mu.Unlock()

	select {
	case p.input <- data:
		return nil
	default:
		slog.Warn("vproc: input buffer full, blocking writer", "pid", p.PID)
		p.input <- data
		return nil
	}
}

// ReadInput is called by the subclass's Execute implementation; it
// suspends until a chunk arrives via WriteInput or ctx is cancelled.
func (p *Process) ReadInput(ctx context.Context) ([]byte, error) {
	select {
	case chunk := <-p.input:
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetExitCode lets a subclass whose success path carries its own exit
// status (the Shell Process, matching a shell's own $?) override the
// code used for a COMPLETED transition. It has no effect on a FAILED or
// TERMINATED transition. Must be called before Execute returns.
func (p *Process) SetExitCode(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exitOverride = &code
}

// RequestSpawnChild emits a SPAWN_CHILD event; the Container is the sole
// listener, per spec.md §4.3.
func (p *Process) RequestSpawnChild(spec SpawnSpec, callback func(SpawnResult)) {
	p.Bus.Emit(EventSpawnChild, SpawnChildPayload{Spec: spec, Callback: callback})
}

// EmitStdout/EmitStderr are convenience wrappers used by subclasses to
// publish output, matching spec.md's MESSAGE{stdout?, stderr?} shape.
func (p *Process) EmitStdout(s string) {
	p.Bus.Emit(EventMessage, MessagePayload{Stdout: s})
}

func (p *Process) EmitStderr(s string) {
	p.Bus.Emit(EventMessage, MessagePayload{Stderr: s})
}
