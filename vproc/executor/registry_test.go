package executor

import (
	"errors"
	"strings"
	"testing"

	"github.com/banksean/vcontainer/vproc"
)

func makeNoop(spec vproc.SpawnSpec, pid, parentPID int, hasParent bool) (*vproc.Process, error) {
	return nil, nil
}

func TestFindReturnsFirstMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(Executor{Name: "sh", Accepts: func(p string) bool { return p == "sh" }, Make: makeNoop})
	r.Register(Executor{Name: "script", Accepts: func(p string) bool { return strings.HasSuffix(p, ".js") }, Make: makeNoop})

	e, err := r.Find("sh")
	if err != nil || e.Name != "sh" {
		t.Fatalf("got %v, %v", e, err)
	}
	e, err = r.Find("/a/b.js")
	if err != nil || e.Name != "script" {
		t.Fatalf("got %v, %v", e, err)
	}
}

func TestFindNoExecutor(t *testing.T) {
	r := NewRegistry()
	_, err := r.Find("unknown")
	if !errors.Is(err, ErrNoExecutor) {
		t.Fatalf("expected ErrNoExecutor, got %v", err)
	}
}

func TestRegisterFrontOverridesLaterMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(Executor{Name: "original", Accepts: func(p string) bool { return p == "sh" }, Make: makeNoop})
	r.RegisterFront(Executor{Name: "override", Accepts: func(p string) bool { return p == "sh" }, Make: makeNoop})

	e, err := r.Find("sh")
	if err != nil || e.Name != "override" {
		t.Fatalf("got %v, %v", e, err)
	}
}
