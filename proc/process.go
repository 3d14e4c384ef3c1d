// Package proc implements the process table and lifecycle (getpid,
// fork, waitpid, exit) and the per-process file-descriptor-table
// operations layered on fd.Handle_t and vm.AddrSpace_t. Grounded on
// original_source/kern/syscall/{proc_syscall,file_syscall}.c for exact
// semantics, including the two corrected bugs named in DESIGN.md.
package proc

import (
	"fmt"
	"sync"

	"caller"
	"defs"
	"fd"
	"limits"
	"vm"
)

/// ThreadSpawner_i stands in for the thread-creation/entry-into-
/// user-mode external collaborator (thread_fork + child_entrypoint +
/// mips_usermode in original_source). Fork calls Spawn with a closure
/// capturing the duplicated-trapframe handoff; a real kernel runs it
/// on a new kernel thread, a test collaborator runs it inline.
type ThreadSpawner_i interface {
	Spawn(name string, entry func())
}

/// Process_t is one process-table entry: its address space, file
/// descriptor table, working directory, and exit/wait bookkeeping.
type Process_t struct {
	sync.Mutex
	cv *sync.Cond

	Pid  int
	Ppid int

	As  *vm.AddrSpace_t
	Fds [limits.OPEN_MAX]*fd.Handle_t
	Cwd *fd.Cwd_t

	Exited   bool
	ExitCode int
}

func newProcess(pid, ppid int) *Process_t {
	p := &Process_t{Pid: pid, Ppid: ppid}
	p.cv = sync.NewCond(&p.Mutex)
	return p
}

// harden reports a fd/proc invariant violation per defs.Harden's
// policy (see mem.harden for the same idiom).
func harden(msg string) {
	if defs.Harden {
		fmt.Printf("proc: %s\n", msg)
		caller.Callerdump(2)
		panic(msg)
	}
}
