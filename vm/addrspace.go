// Package vm implements per-process address-space bookkeeping (region
// and page-table lists) and the VM fault path that resolves a fault
// address to a resident physical frame. It follows the teacher's
// Vm_t locking idiom (Lock_pmap/Unlock_pmap/Lockassert_pmap, one
// sync.Mutex per address space, Err_t returns) but not the teacher's
// COW/demand-paging machinery, which this module's non-goals exclude;
// the region/page-table semantics instead follow spec.md §4.2/§4.3,
// cross-checked against original_source/kern/vm/{addrspace,vm}.c.
package vm

import (
	"sync"

	"defs"
	"limits"
	"mem"
)

/// AddrSpace_t owns one process's region list, heap region, stack
/// region, and page-table list. The mutex protects all four, mirroring
/// the teacher's Vm_t: modifications to the region/page-table lists
/// and page-fault handling are mutually exclusive.
type AddrSpace_t struct {
	sync.Mutex
	pgfltaken bool

	codedata rlist_t
	heap     *Region_t
	stack    *Region_t
	ptes     ptelist_t
}

/// Lock_pmap acquires the address-space mutex and marks that a page
/// fault may be in progress, matching the teacher's assertion idiom.
func (as *AddrSpace_t) Lock_pmap() {
	as.Lock()
	as.pgfltaken = true
}

/// Unlock_pmap releases the address-space mutex.
func (as *AddrSpace_t) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

/// Lockassert_pmap panics if the address-space mutex is not held; used
/// by internal helpers that require the caller to already hold it.
func (as *AddrSpace_t) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("vm: pmap lock must be held")
	}
}

// stackPages is the fixed stack region size in pages, per spec.md
// §4.2: 1024 pages ending at USERSTACK.
const stackPages = 1024

/// Create allocates a fresh address space: an empty region list, a
/// stack region fixed at [USERSTACK-1024*PAGE_SIZE, USERSTACK), and an
/// empty page-table list. Never fails in this hosted module (there is
/// no fixed-size struct allocator to exhaust) but keeps the nilable
/// return spec.md names for a future constrained-memory host.
func Create() *AddrSpace_t {
	as := &AddrSpace_t{}
	as.stack = &Region_t{
		Vbase: limits.USERSTACK - stackPages*limits.PAGE_SIZE,
		Vend:  limits.USERSTACK,
		Perm:  Perm_t{R: true, W: true},
	}
	return as
}

/// DefineRegion aligns vaddr down and size up to PAGE_SIZE, appends a
/// region spanning the aligned range to the code/data list, and
/// advances the heap base/end to the region's end if it is now the
/// highest region — so the heap begins immediately above the highest
/// code/data region, per spec.md §4.2.
func (as *AddrSpace_t) DefineRegion(vaddr, size uintptr, r, w, x bool) defs.Err_t {
	as.Lock()
	defer as.Unlock()

	base, end := roundRegion(vaddr, size)
	reg := &Region_t{Vbase: base, Vend: end, Perm: Perm_t{R: r, W: w, X: x}}
	as.codedata.push(reg)

	if as.heap == nil || end > as.heap.Vend {
		as.heap = &Region_t{Vbase: end, Vend: end, Perm: Perm_t{R: true, W: true}}
	}
	return 0
}

/// PrepareLoad is a reserved hook for pre-ELF-load work. Currently a
/// no-op; must remain idempotent.
func (as *AddrSpace_t) PrepareLoad() defs.Err_t {
	return 0
}

/// CompleteLoad is a reserved hook for post-ELF-load work. Currently a
/// no-op; must remain idempotent.
func (as *AddrSpace_t) CompleteLoad() defs.Err_t {
	return 0
}

/// DefineStack reports the initial stack pointer; the stack region
/// itself is fixed at Create time.
func (as *AddrSpace_t) DefineStack() uintptr {
	return limits.USERSTACK
}

/// Copy creates a fresh address space and, for the code/data list, the
/// heap region, the stack region, and every page-table entry, pushes
/// an equivalent node into the new address space; for each resident
/// page-table entry it allocates a new physical frame and byte-copies
/// PAGE_SIZE from the old frame's kernel alias to the new one.
/// Failure at any step releases what was allocated and returns ENOMEM.
func (as *AddrSpace_t) Copy() (*AddrSpace_t, defs.Err_t) {
	as.Lock()
	defer as.Unlock()

	nas := &AddrSpace_t{}
	for r := as.codedata.head; r != nil; r = r.Next {
		nr := *r
		nr.Next = nil
		nas.codedata.push(&nr)
	}
	if as.heap != nil {
		nh := *as.heap
		nh.Next = nil
		nas.heap = &nh
	}
	if as.stack != nil {
		ns := *as.stack
		ns.Next = nil
		nas.stack = &ns
	}

	var allocated []uintptr
	fail := func() (*AddrSpace_t, defs.Err_t) {
		for _, kva := range allocated {
			mem.FreeKpages(kva)
		}
		return nil, -defs.ENOMEM
	}

	for p := as.ptes.head; p != nil; p = p.Next {
		np := &Pte_t{Vpn: p.Vpn, State: p.State, Permission: p.Permission, Activity: p.Activity}
		if p.State == MEM && p.Phys != 0 {
			kva := mem.AllocKpages(1)
			if kva == 0 {
				return fail()
			}
			allocated = append(allocated, kva)
			copy(kbytes(kva), kbytes(p.Phys))
			np.Phys = kva
		}
		nas.ptes.push(np)
	}
	return nas, 0
}

/// Destroy pops every region from each list, releasing each region's
/// backing physical run (regions themselves carry no backing run in
/// this cut — only page-table entries do, per spec.md §3 — so region
/// teardown is bookkeeping-only), then tears down the page-table list,
/// returning each resident frame to the allocator, then frees the
/// address space.
func (as *AddrSpace_t) Destroy() {
	as.Lock()
	defer as.Unlock()

	for as.codedata.pop() != nil {
	}
	as.heap = nil
	as.stack = nil
	for {
		p := as.ptes.pop()
		if p == nil {
			break
		}
		if p.State == MEM && p.Phys != 0 {
			mem.FreeKpages(p.Phys)
		}
	}
}

/// Activate invalidates every TLB entry via the TlbInvalidateAll
/// collaborator hook (standing in for raised-IPL hardware TLB flush).
func (as *AddrSpace_t) Activate() {
	TlbInvalidateAll()
}

/// Deactivate is a no-op, per spec.md §4.2.
func (as *AddrSpace_t) Deactivate() {
}

// kbytes views a kernel virtual alias (as returned by mem.AllocKpages)
// as a PAGE_SIZE byte slice, for the frame-copy in Copy and the
// zero-fill in the fault path.
func kbytes(kva uintptr) []byte {
	return mem.KpageBytes(kva)
}
