package proc

import (
	"sync"

	"defs"
	"limits"
)

/// Table_t is the fixed-size, pid-indexed process table: a counter for
/// pid allocation with a freelist stack for reuse, and a quiescence
/// signal raised on every exit (the teacher's and original_source's
/// g_sem, standing in for "a supervisor may wait for the system to
/// quiesce").
type Table_t struct {
	mu      sync.Mutex
	procs   map[int]*Process_t
	freePid []int
	nextPid int
	quiesce chan struct{}
}

/// Table is the single system-wide process table. pid 1 is reserved as
/// the reparent target (spec.md §3) and is never handed out by Create.
var Table = newTable()

func newTable() *Table_t {
	t := &Table_t{
		procs:   make(map[int]*Process_t),
		nextPid: 2,
		quiesce: make(chan struct{}, limits.PID_MAX),
	}
	return t
}

// allocPid returns a fresh pid, preferring a freed one (LIFO, matching
// the teacher's freelist-stack idiom) over the monotonic counter.
func (t *Table_t) allocPid() (int, defs.Err_t) {
	if n := len(t.freePid); n > 0 {
		pid := t.freePid[n-1]
		t.freePid = t.freePid[:n-1]
		return pid, 0
	}
	if t.nextPid >= limits.PID_MAX {
		return 0, -defs.ENOMEM
	}
	pid := t.nextPid
	t.nextPid++
	return pid, 0
}

/// Create allocates a pid, inserts a new Process_t into the table with
/// the given parent pid, and returns it.
func (t *Table_t) Create(ppid int) (*Process_t, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pid, err := t.allocPid()
	if err != 0 {
		return nil, err
	}
	p := newProcess(pid, ppid)
	t.procs[pid] = p
	return p, 0
}

/// Get returns the process with the given pid, if live in the table.
func (t *Table_t) Get(pid int) (*Process_t, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	return p, ok
}

/// Reap removes pid from the table and returns its pid to the
/// freelist, called once a waiter has collected its exit status
/// (the REAPED terminal state in spec.md §4.5's state machine).
func (t *Table_t) Reap(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.procs[pid]; !ok {
		harden("reap of a pid not present in the process table")
		return
	}
	delete(t.procs, pid)
	t.freePid = append(t.freePid, pid)
}

// reparentChildren walks the table and reassigns ppid=1 to every
// process whose ppid equals self, per sys_exit in original_source.
func (t *Table_t) reparentChildren(self int) {
	t.mu.Lock()
	var kids []*Process_t
	for _, p := range t.procs {
		if p.Ppid == self {
			kids = append(kids, p)
		}
	}
	t.mu.Unlock()

	for _, k := range kids {
		k.Lock()
		k.Ppid = 1
		k.Unlock()
	}
}

// signalQuiesce is g_sem's V(): a non-blocking send so an unbounded
// number of exits never deadlocks a supervisor that never drains it.
func (t *Table_t) signalQuiesce() {
	select {
	case t.quiesce <- struct{}{}:
	default:
	}
}

/// WaitQuiesce consumes one exit signal, blocking until one is
/// pending: each Exit adds one (up to PID_MAX pending) and each call
/// takes one. It is the quiescence-signal collaborator a supervisor
/// (menu) uses to know the system has made progress.
func (t *Table_t) WaitQuiesce() {
	<-t.quiesce
}
