package proc

import (
	"defs"
	"fd"
	"limits"
)

/// Getpid returns the process's own pid.
func (p *Process_t) Getpid() int {
	return p.Pid
}

/// Fork creates a child process: a fresh pid, a deep copy of the
/// parent's address space (vm.AddrSpace_t.Copy), every file-table slot
/// duplicated by reference with its handle's ref_count incremented
/// (the corrected behavior DESIGN.md names — original_source's
/// proc_child->file_table[index] = curproc->file_table[index] omits
/// this), and a fresh Cwd_t pointing at the same node/path. spawner
/// runs entry in the child's context; a real kernel runs it on a new
/// kernel thread that restores the child trap frame and enters user
/// mode, a test collaborator runs it inline. Returns the child pid to
/// the parent.
func (p *Process_t) Fork(spawner ThreadSpawner_i, entry func(child *Process_t)) (int, defs.Err_t) {
	child, err := Table.Create(p.Pid)
	if err != 0 {
		return -1, err
	}

	nas, err := p.As.Copy()
	if err != 0 {
		Table.Reap(child.Pid)
		return -1, err
	}
	child.As = nas

	p.Lock()
	for i, h := range p.Fds {
		if h != nil {
			h.Incref()
			child.Fds[i] = h
		}
	}
	p.Unlock()

	child.Cwd = &fd.Cwd_t{Node: p.Cwd.Node, Path: ustrCopy(p.Cwd.Path)}

	spawner.Spawn("child", func() { entry(child) })
	return child.Pid, 0
}

// ustrCopy copies a path so the child's Cwd_t does not alias the
// parent's backing array.
func ustrCopy(p []uint8) []uint8 {
	c := make([]uint8, len(p))
	copy(c, p)
	return c
}

/// Waitpid validates pid, rejects waiting on self with ECHILD, blocks
/// on the target's condition variable until it has exited, then
/// returns its pid and encoded exit status. Only the parent is
/// authorized to wait in principle; kinship is not enforced here,
/// matching original_source's own unenforced policy (DESIGN.md).
func (p *Process_t) Waitpid(pid int, options int) (int, int, defs.Err_t) {
	if pid < 0 || pid >= limits.PID_MAX {
		return -1, 0, -defs.ESRCH
	}
	if options != 0 {
		return -1, 0, -defs.EINVAL
	}
	if pid == p.Pid {
		return -1, 0, -defs.ECHILD
	}

	target, ok := Table.Get(pid)
	if !ok {
		return -1, 0, -defs.ESRCH
	}

	target.Lock()
	for !target.Exited {
		target.cv.Wait()
	}
	status := target.ExitCode
	target.Unlock()

	Table.Reap(pid)
	return pid, status, 0
}

/// Exit reparents every child of p to pid 1, encodes code into the
/// wait-status format, marks p exited, wakes any waiter, and signals
/// the system quiescence collaborator. The process entry is not
/// removed until a waiter reaps it (REAPED state in spec.md §4.5).
func (p *Process_t) Exit(code int) {
	Table.reparentChildren(p.Pid)

	p.Lock()
	p.ExitCode = defs.MkwaitExit(code)
	p.Exited = true
	p.cv.Broadcast()
	p.Unlock()

	Table.signalQuiesce()
}
