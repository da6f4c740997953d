package vproc

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSubclass struct {
	executeFn     func(ctx context.Context, p *Process) error
	onTerminate   func(p *Process)
	terminateHits int
}

func (f *fakeSubclass) Execute(ctx context.Context, p *Process) error {
	if f.executeFn != nil {
		return f.executeFn(ctx, p)
	}
	return nil
}

func (f *fakeSubclass) OnTerminate(p *Process) {
	f.terminateHits++
	if f.onTerminate != nil {
		f.onTerminate(p)
	}
}

func newTestProcess(sub Subclass) *Process {
	return New(1, 0, false, TypeScript, "/script.js", nil, "/", map[string]string{}, sub)
}

func TestStartCompletesSuccessfully(t *testing.T) {
	p := newTestProcess(&fakeSubclass{})
	var events []string
	p.Bus.On(EventStart, func(any) { events = append(events, "START") })
	p.Bus.On(EventExit, func(any) { events = append(events, "EXIT") })

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.State() != StateCompleted {
		t.Fatalf("expected COMPLETED, got %s", p.State())
	}
	code, ok := p.ExitCode()
	if !ok || code != 0 {
		t.Fatalf("expected exit code 0, got %d (ok=%v)", code, ok)
	}
	if !p.EndTime().After(p.StartTime()) && !p.EndTime().Equal(p.StartTime()) {
		t.Fatalf("end_time should be >= start_time")
	}
	want := []string{"START", "EXIT"}
	for i, e := range want {
		if events[i] != e {
			t.Fatalf("got %v want %v", events, want)
		}
	}
}

func TestStartFailurePath(t *testing.T) {
	sub := &fakeSubclass{executeFn: func(ctx context.Context, p *Process) error {
		return errors.New("boom")
	}}
	p := newTestProcess(sub)
	var events []string
	p.Bus.On(EventError, func(any) { events = append(events, "ERROR") })
	p.Bus.On(EventExit, func(any) { events = append(events, "EXIT") })

	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if p.State() != StateFailed {
		t.Fatalf("expected FAILED, got %s", p.State())
	}
	code, _ := p.ExitCode()
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if events[0] != "ERROR" || events[1] != "EXIT" {
		t.Fatalf("expected ERROR then EXIT, got %v", events)
	}
}

func TestStartOnlyLegalFromCreated(t *testing.T) {
	p := newTestProcess(&fakeSubclass{})
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestTerminateDuringExecution(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	sub := &fakeSubclass{executeFn: func(ctx context.Context, p *Process) error {
		close(started)
		<-release
		return nil
	}}
	p := newTestProcess(sub)

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background()) }()
	<-started
	p.Terminate()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("Start should not surface an error on termination, got %v", err)
	}
	if p.State() != StateTerminated {
		t.Fatalf("expected TERMINATED, got %s", p.State())
	}
	code, ok := p.ExitCode()
	if !ok || code != -1 {
		t.Fatalf("expected exit code -1, got %d (ok=%v)", code, ok)
	}
	if sub.terminateHits != 1 {
		t.Fatalf("expected OnTerminate called once, got %d", sub.terminateHits)
	}
}

func TestTerminateIsIdempotent(t *testing.T) {
	sub := &fakeSubclass{}
	p := newTestProcess(sub)
	p.Terminate() // not RUNNING yet: no-op
	if p.State() != StateCreated {
		t.Fatalf("expected CREATED, got %s", p.State())
	}

	started := make(chan struct{})
	release := make(chan struct{})
	sub.executeFn = func(ctx context.Context, p *Process) error {
		close(started)
		<-release
		return nil
	}
	go p.Start(context.Background())
	<-started
	p.Terminate()
	p.Terminate() // second call must be a no-op
	close(release)

	time.Sleep(10 * time.Millisecond)
	if sub.terminateHits != 1 {
		t.Fatalf("expected exactly one OnTerminate call, got %d", sub.terminateHits)
	}
}

func TestSetExitCodeOverridesCompletedCode(t *testing.T) {
	sub := &fakeSubclass{executeFn: func(ctx context.Context, p *Process) error {
		p.SetExitCode(127)
		return nil
	}}
	p := newTestProcess(sub)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.State() != StateCompleted {
		t.Fatalf("expected COMPLETED, got %s", p.State())
	}
	code, ok := p.ExitCode()
	if !ok || code != 127 {
		t.Fatalf("expected exit code 127, got %d (ok=%v)", code, ok)
	}
}

func TestSetExitCodeIgnoredOnFailure(t *testing.T) {
	sub := &fakeSubclass{executeFn: func(ctx context.Context, p *Process) error {
		p.SetExitCode(42)
		return errors.New("boom")
	}}
	p := newTestProcess(sub)
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	code, _ := p.ExitCode()
	if code != 1 {
		t.Fatalf("expected FAILED to force exit code 1, got %d", code)
	}
}

func TestWriteInputRequiresRunning(t *testing.T) {
	p := newTestProcess(&fakeSubclass{})
	if err := p.WriteInput([]byte("x")); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestReadInputDeliversWrittenChunk(t *testing.T) {
	received := make(chan []byte, 1)
	sub := &fakeSubclass{executeFn: func(ctx context.Context, p *Process) error {
		chunk, err := p.ReadInput(ctx)
		if err != nil {
			return err
		}
		received <- chunk
		return nil
	}}
	p := newTestProcess(sub)
	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background()) }()

	// Give Execute a moment to reach ReadInput before writing.
	time.Sleep(5 * time.Millisecond)
	if err := p.WriteInput([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if got := <-received; string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
	<-done
}
