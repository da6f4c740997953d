package vshell

import "time"

// historyCap is the default bound on retained command history, per
// spec.md §3 ("History: ... default cap 1000").
const historyCap = 1000

type historyEntry struct {
	Cmd string
	At  time.Time
}

// history is the bounded, cursor-navigable command history backing the
// Up/Down line-editor keys. cursor == -1 means "editing the live line";
// 0 is the most recently added entry, increasing toward older entries.
type history struct {
	entries   []historyEntry
	cursor    int
	savedLive string
}

func newHistory() *history {
	return &history{cursor: -1}
}

// Add appends cmd if non-empty and distinct from the immediately
// preceding entry, trimming the oldest entry once historyCap is
// exceeded. Any in-progress Up/Down navigation is reset to live.
func (h *history) Add(cmd string) {
	h.cursor = -1
	h.savedLive = ""
	if cmd == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1].Cmd == cmd {
		return
	}
	h.entries = append(h.entries, historyEntry{Cmd: cmd, At: time.Now()})
	if len(h.entries) > historyCap {
		h.entries = h.entries[len(h.entries)-historyCap:]
	}
}

// Up moves one entry further into the past, saving liveLine on the
// first call, and returns the text that should replace the line buffer.
// ok is false if there is no history to move into.
func (h *history) Up(liveLine string) (text string, ok bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor == -1 {
		h.savedLive = liveLine
		h.cursor = 0
		return h.entries[len(h.entries)-1].Cmd, true
	}
	if h.cursor+1 >= len(h.entries) {
		return h.entries[len(h.entries)-1-h.cursor].Cmd, true
	}
	h.cursor++
	return h.entries[len(h.entries)-1-h.cursor].Cmd, true
}

// Down moves one entry toward the present, returning the saved live
// line once the cursor passes the newest entry. ok is false if already
// at the live line (nothing to do).
func (h *history) Down() (text string, ok bool) {
	if h.cursor == -1 {
		return "", false
	}
	if h.cursor == 0 {
		h.cursor = -1
		return h.savedLive, true
	}
	h.cursor--
	return h.entries[len(h.entries)-1-h.cursor].Cmd, true
}

// Entries returns every retained entry, oldest first.
func (h *history) Entries() []historyEntry {
	return h.entries
}
