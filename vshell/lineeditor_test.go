package vshell

import "testing"

func TestLineEditorInsertAndEnter(t *testing.T) {
	le := &lineEditor{}
	hist := newHistory()

	for _, ch := range []string{"l", "s"} {
		le.feed(ch, hist)
	}
	if le.text != "ls" || le.cursor != 2 {
		t.Fatalf("got text=%q cursor=%d", le.text, le.cursor)
	}

	out, submit, _, _ := le.feed("\r", hist)
	if !submit || out != "\n" {
		t.Fatalf("got out=%q submit=%v", out, submit)
	}
}

func TestLineEditorBackspace(t *testing.T) {
	le := &lineEditor{text: "ls", cursor: 2}
	le.feed("\x7f", newHistory())
	if le.text != "l" || le.cursor != 1 {
		t.Fatalf("got text=%q cursor=%d", le.text, le.cursor)
	}
}

func TestLineEditorBackspaceAtStartIsNoop(t *testing.T) {
	le := &lineEditor{}
	out, _, _, _ := le.feed("\x7f", newHistory())
	if out != "" || le.text != "" {
		t.Fatalf("expected no-op, got out=%q text=%q", out, le.text)
	}
}

func TestLineEditorCursorMovement(t *testing.T) {
	le := &lineEditor{text: "ls", cursor: 0}
	out, _, _, _ := le.feed("\x1b[C", newHistory())
	if out != "\x1b[C" || le.cursor != 1 {
		t.Fatalf("got out=%q cursor=%d", out, le.cursor)
	}
	out, _, _, _ = le.feed("\x1b[D", newHistory())
	if out != "\x1b[D" || le.cursor != 0 {
		t.Fatalf("got out=%q cursor=%d", out, le.cursor)
	}
	// At start: left is a no-op.
	out, _, _, _ = le.feed("\x1b[D", newHistory())
	if out != "" || le.cursor != 0 {
		t.Fatalf("expected no-op, got out=%q cursor=%d", out, le.cursor)
	}
}

func TestLineEditorCtrlC(t *testing.T) {
	le := &lineEditor{text: "abc", cursor: 3}
	out, _, interrupted, _ := le.feed("\x03", newHistory())
	if !interrupted || out != "^C\n" || le.text != "" {
		t.Fatalf("got out=%q interrupted=%v text=%q", out, interrupted, le.text)
	}
}

func TestLineEditorCtrlDOnEmptyLine(t *testing.T) {
	le := &lineEditor{}
	out, _, _, eof := le.feed("\x04", newHistory())
	if !eof || out != "exit\n" {
		t.Fatalf("got out=%q eof=%v", out, eof)
	}
}

func TestLineEditorCtrlDOnNonEmptyLineIsNoop(t *testing.T) {
	le := &lineEditor{text: "x", cursor: 1}
	out, _, _, eof := le.feed("\x04", newHistory())
	if eof || out != "" {
		t.Fatalf("expected no-op, got out=%q eof=%v", out, eof)
	}
}

func TestLineEditorHistoryUpReplacesLine(t *testing.T) {
	hist := newHistory()
	hist.Add("ls -la")
	le := &lineEditor{text: "pw", cursor: 2}
	out, _, _, _ := le.feed("\x1b[A", hist)
	if le.text != "ls -la" || le.cursor != len("ls -la") {
		t.Fatalf("got text=%q cursor=%d", le.text, le.cursor)
	}
	if out == "" {
		t.Fatalf("expected redraw output")
	}
}
