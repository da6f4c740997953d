package vshell

import "testing"

func TestHistoryAddSkipsEmptyAndDuplicates(t *testing.T) {
	h := newHistory()
	h.Add("")
	h.Add("ls")
	h.Add("ls")
	h.Add("pwd")
	if len(h.Entries()) != 2 {
		t.Fatalf("got %v", h.Entries())
	}
}

func TestHistoryUpDownNavigation(t *testing.T) {
	h := newHistory()
	h.Add("ls")
	h.Add("pwd")

	text, ok := h.Up("inprog")
	if !ok || text != "pwd" {
		t.Fatalf("got %q, %v", text, ok)
	}
	text, ok = h.Up("inprog")
	if !ok || text != "ls" {
		t.Fatalf("got %q, %v", text, ok)
	}
	// Already at oldest: stays put.
	text, ok = h.Up("inprog")
	if !ok || text != "ls" {
		t.Fatalf("got %q, %v", text, ok)
	}

	text, ok = h.Down()
	if !ok || text != "pwd" {
		t.Fatalf("got %q, %v", text, ok)
	}
	text, ok = h.Down()
	if !ok || text != "inprog" {
		t.Fatalf("expected saved live line, got %q, %v", text, ok)
	}
	// Already live: no-op.
	if _, ok := h.Down(); ok {
		t.Fatalf("expected no-op at live line")
	}
}

func TestHistoryCapTrimsOldest(t *testing.T) {
	h := newHistory()
	for i := 0; i < historyCap+10; i++ {
		h.Add(string(rune('a' + i%26)))
	}
	if len(h.Entries()) != historyCap {
		t.Fatalf("got %d entries", len(h.Entries()))
	}
}
