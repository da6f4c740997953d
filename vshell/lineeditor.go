package vshell

import "strings"

// lineEditor is the shell's in-progress input line and cursor, per
// spec.md §3's "Shell Line Buffer" (text, cursor_index).
type lineEditor struct {
	text   string
	cursor int
}

// feed applies one input chunk to the line buffer per the state machine
// in spec.md §4.7. output is the bytes to echo back to the terminal;
// submit is true once Enter completes a command line (callers read
// le.text then reset); interrupted is true on Ctrl-C; eof is true on
// Ctrl-D against an empty line.
func (le *lineEditor) feed(chunk string, hist *history) (output string, submit, interrupted, eof bool) {
	switch chunk {
	case "\r":
		return "\n", true, false, false
	case "\x7f", "\b":
		return le.backspace(), false, false, false
	case "\x1b[A":
		if text, ok := hist.Up(le.text); ok {
			return le.replaceLine(text), false, false, false
		}
		return "", false, false, false
	case "\x1b[B":
		if text, ok := hist.Down(); ok {
			return le.replaceLine(text), false, false, false
		}
		return "", false, false, false
	case "\x1b[C":
		if le.cursor < len(le.text) {
			le.cursor++
			return "\x1b[C", false, false, false
		}
		return "", false, false, false
	case "\x1b[D":
		if le.cursor > 0 {
			le.cursor--
			return "\x1b[D", false, false, false
		}
		return "", false, false, false
	case "\x03":
		le.text, le.cursor = "", 0
		return "^C\n", false, true, false
	case "\x04":
		if le.text == "" {
			return "exit\n", false, false, true
		}
		return "", false, false, false
	}
	if len(chunk) == 1 && chunk[0] >= ' ' {
		return le.insert(chunk), false, false, false
	}
	return "", false, false, false
}

// reset clears the buffer, e.g. after a command line is submitted.
func (le *lineEditor) reset() {
	le.text, le.cursor = "", 0
}

func (le *lineEditor) insert(ch string) string {
	le.text = le.text[:le.cursor] + ch + le.text[le.cursor:]
	le.cursor++
	suffix := le.text[le.cursor:]
	return ch + suffix + strings.Repeat("\b", len(suffix))
}

func (le *lineEditor) backspace() string {
	if le.cursor == 0 {
		return ""
	}
	le.text = le.text[:le.cursor-1] + le.text[le.cursor:]
	le.cursor--
	remainder := le.text[le.cursor:]
	return "\b" + remainder + " " + strings.Repeat("\b", len(remainder)+1)
}

// replaceLine overwrites the visible line with text (used by history
// navigation), repositioning the cursor to the end of the new text.
func (le *lineEditor) replaceLine(text string) string {
	back := strings.Repeat("\b", le.cursor)
	oldLen := len(le.text)
	var pad string
	if oldLen > len(text) {
		extra := oldLen - len(text)
		pad = strings.Repeat(" ", extra) + strings.Repeat("\b", extra)
	}
	le.text = text
	le.cursor = len(text)
	return back + text + pad
}
