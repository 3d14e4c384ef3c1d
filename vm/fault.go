package vm

import (
	"bounds"
	"defs"
	"limits"
	"mem"
	"res"
)

/// FaultType_t names the access that triggered a fault. Only recorded,
/// not differentiated, per spec.md §4.3 — write-protection enforcement
/// is an explicitly open hook for a future cut.
type FaultType_t int

const (
	FaultRead FaultType_t = iota
	FaultWrite
	FaultReadonly
)

// lookupRegion walks the three region lists (code/data, stack, heap)
// and reports whether faultAddr falls in [vbase, vend] of one of them,
// per spec.md §4.3 step 2. Caller holds as.Lock_pmap.
func (as *AddrSpace_t) lookupRegion(faultAddr uintptr) bool {
	if _, ok := as.codedata.lookup(faultAddr); ok {
		return true
	}
	if as.stack != nil && faultAddr >= as.stack.Vbase && faultAddr <= as.stack.Vend {
		return true
	}
	if as.heap != nil && faultAddr >= as.heap.Vbase && faultAddr <= as.heap.Vend {
		return true
	}
	return false
}

/// VmFault resolves a fault at faultAddr against as: EFAULT if as is
/// nil (the early-boot guard spec.md §4.3 step 1 names) or faultAddr
/// lies in no region; otherwise locates or installs the page-table
/// entry for faultAddr's VPN — allocating and zeroing a frame and
/// loading one TLB entry on first touch — and returns 0.
func VmFault(as *AddrSpace_t, faultType FaultType_t, faultAddr uintptr) defs.Err_t {
	if as == nil {
		return -defs.EFAULT
	}

	as.Lock_pmap()
	defer as.Unlock_pmap()

	if !res.Resadd_noblock(bounds.Bounds(bounds.B_VM_FAULT)) {
		return -defs.ENOHEAP
	}
	defer res.Resdel(bounds.Bounds(bounds.B_VM_FAULT))

	if !as.lookupRegion(faultAddr) {
		return -defs.EFAULT
	}

	vpn := faultAddr &^ uintptr(limits.PAGE_SIZE-1)
	if pte, ok := as.ptes.lookup(vpn); ok && pte.State == MEM && pte.Phys != 0 {
		TlbLoad(vpn, pte.Phys)
		return 0
	}

	kva := mem.AllocKpages(1)
	if kva == 0 {
		return -defs.ENOMEM
	}
	pg := mem.KpageBytes(kva)
	for i := range pg {
		pg[i] = 0
	}

	pte := &Pte_t{Vpn: vpn, Phys: kva, State: MEM}
	as.ptes.push(pte)
	TlbLoad(vpn, kva)
	return 0
}
