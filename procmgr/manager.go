// Package procmgr implements the Process Manager of spec.md §4.5: the PID
// table, PID allocation, and parent/child tree queries derived by
// scanning parent_pid.
package procmgr

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banksean/vcontainer/vproc"
)

// Manager owns the PID table. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	table   map[int]*vproc.Process
	counter int
}

// New returns an empty Manager; PIDs are allocated starting at 1.
func New() *Manager {
	return &Manager{table: make(map[int]*vproc.Process)}
}

// NextPID returns a fresh, monotonically increasing PID.
func (m *Manager) NextPID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.counter
}

// Add registers p in the table.
func (m *Manager) Add(p *vproc.Process) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[p.PID] = p
}

// Get returns the process for pid, if present.
func (m *Manager) Get(pid int) (*vproc.Process, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.table[pid]
	return p, ok
}

// Remove deletes pid from the table. It is idempotent: removing an
// absent or already-removed PID is a no-op, matching spec.md §9's note
// that both terminate_tree and single-child reaping may race to remove
// the same process.
func (m *Manager) Remove(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.table, pid)
}

// List returns every process currently in the table, sorted by PID.
func (m *Manager) List() []*vproc.Process {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*vproc.Process, 0, len(m.table))
	for _, p := range m.table {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Children returns the PIDs whose ParentPID is pid, sorted ascending.
func (m *Manager) Children(pid int) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []int
	for _, p := range m.table {
		if p.HasParent && p.ParentPID == pid {
			out = append(out, p.PID)
		}
	}
	sort.Ints(out)
	return out
}

// Roots returns every PID that has no parent in the table, sorted
// ascending.
func (m *Manager) Roots() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []int
	for _, p := range m.table {
		if !p.HasParent {
			out = append(out, p.PID)
		}
	}
	sort.Ints(out)
	return out
}

// Tree returns pid and every descendant PID, depth-first, pid first.
func (m *Manager) Tree(pid int) []int {
	out := []int{pid}
	for _, c := range m.Children(pid) {
		out = append(out, m.Tree(c)...)
	}
	return out
}

// TerminateAll concurrently terminates every process in the table and
// awaits completion, per spec.md §5 ("terminate_all awaits all
// per-process terminate completions").
func (m *Manager) TerminateAll(ctx context.Context) error {
	procs := m.List()
	g, _ := errgroup.WithContext(ctx)
	for _, p := range procs {
		p := p
		g.Go(func() error {
			p.Terminate()
			return nil
		})
	}
	return g.Wait()
}
