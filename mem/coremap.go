// Package mem implements the physical frame allocator: a coremap
// descriptor array, bootstrapped over a simulated RAM backing, handed
// out by alloc_ppages/alloc_kpages and reclaimed by free_kpages. The
// style — one spinlock-equivalent guarding the whole array, a
// direct-mapped kernel alias over physical memory — follows the
// teacher's mem.Pa_t/Pg_t/Pmap_t convention; the first-fit algorithm
// and PARENT/CHILD/REUSE bookkeeping follow spec.md §4.1 rather than
// the teacher's refcounted per-CPU-freelist allocator, which this
// module's non-goals (demand paging, swap, replacement policy) don't
// need.
package mem

import (
	"fmt"
	"sync"
	"unsafe"

	"caller"
	"defs"
	"limits"
)

// PAGE_SIZE is the hosted page size this allocator carves RAM into.
const PAGE_SIZE = limits.PAGE_SIZE

// harden reports a kernel-core invariant violation. When defs.Harden
// is off (the default during early development per spec.md §7) it
// returns without a trace; when on, it prints a caller dump and panics.
func harden(msg string) {
	if defs.Harden {
		fmt.Printf("mem: %s\n", msg)
		caller.Callerdump(2)
		panic(msg)
	}
}

/// Pa_t is a physical address.
type Pa_t uintptr

/// State of a frame descriptor.
type State_t int

const (
	FREE State_t = iota
	FIXED
)

/// Role of a frame within a multi-frame allocation.
type Role_t int

const (
	PARENT Role_t = iota
	CHILD
)

/// Reusability of a frame; NO_REUSE frames never transition to FREE.
type Reuse_t int

const (
	REUSE Reuse_t = iota
	NO_REUSE
)

/// Owner_i is the weak reference a frame descriptor holds to its
/// owning address space. The vm package's AddrSpace_t satisfies it;
/// mem itself never calls through it.
type Owner_i interface{}

/// FrameDescriptor_t describes one physical page.
type FrameDescriptor_t struct {
	PhysAddr   Pa_t
	KvirtAddr  uintptr
	Owner      Owner_i
	State      State_t
	BlockRole  Role_t
	BlockSize  int
	Reusable   Reuse_t
}

/// Coremap_t is the physical frame allocator: a descriptor array over
/// a simulated RAM backing, guarded by a single lock standing in for
/// the hardware coremap spinlock. Allocator calls must not block on a
/// sleep lock while holding coremapLock.
type Coremap_t struct {
	coremapLock sync.Mutex
	ram         []byte
	frames      []FrameDescriptor_t
	bytesFree   int
	ramSize     int
}

/// Global coremap instance, initialized by Init. The teacher's
/// equivalent (mem.Physmem) is likewise a package-level singleton;
/// a hosted kernel core has exactly one RAM to carve up.
var cm Coremap_t

/// Init bootstraps the allocator: computes the frame count from
/// ramSize, places the descriptor array (here: a Go slice, no physical
/// placement needed) and marks every frame below firstFreePhys
/// FIXED+NO_REUSE, the rest FREE+REUSE.
func Init(ramSize int, firstFreePhys int) {
	cm.coremapLock.Lock()
	defer cm.coremapLock.Unlock()

	cm.ramSize = ramSize
	cm.ram = make([]byte, ramSize)
	n := ramSize / PAGE_SIZE
	cm.frames = make([]FrameDescriptor_t, n)
	for i := range cm.frames {
		pa := Pa_t(i * PAGE_SIZE)
		cm.frames[i] = FrameDescriptor_t{
			PhysAddr:  pa,
			KvirtAddr: uintptr(unsafeIndex(&cm.ram, i*PAGE_SIZE)),
		}
		// Physical page zero is always reserved, boot-reservation or
		// not: AllocPpages returns a frame's PhysAddr, and 0 doubles as
		// its own "no run available" failure sentinel, so a frame at
		// physical address 0 must never be handed out as REUSE.
		if int(pa) < firstFreePhys || pa == 0 {
			cm.frames[i].State = FIXED
			cm.frames[i].Reusable = NO_REUSE
			cm.frames[i].BlockRole = PARENT
			cm.frames[i].BlockSize = 1
		} else {
			cm.frames[i].State = FREE
			cm.frames[i].Reusable = REUSE
		}
	}
	used := 0
	for i := range cm.frames {
		if cm.frames[i].State != FREE {
			used += PAGE_SIZE
		}
	}
	cm.bytesFree = ramSize - used
}

// unsafeIndex returns the address of ram[off] as a uintptr, the
// "kernel direct-mapped alias" for a physical offset in this hosted
// simulation. Kept as a tiny helper rather than inlined unsafe.Pointer
// arithmetic at every call site.
func unsafeIndex(ram *[]byte, off int) uintptr {
	return uintptr(unsafe.Pointer(&(*ram)[off]))
}

/// AllocPpages returns the physical base of a contiguous run of n
/// FREE+REUSE frames, or 0 if none exists, n<=0, or n*PAGE_SIZE
/// exceeds bytesFree.
func AllocPpages(n int) Pa_t {
	cm.coremapLock.Lock()
	defer cm.coremapLock.Unlock()
	idx := cm.allocRun(n)
	if idx < 0 {
		return 0
	}
	return cm.frames[idx].PhysAddr
}

/// AllocKpages is AllocPpages but returns the kernel direct-mapped
/// virtual alias of the run's first frame, or 0 on failure.
func AllocKpages(n int) uintptr {
	cm.coremapLock.Lock()
	defer cm.coremapLock.Unlock()
	idx := cm.allocRun(n)
	if idx < 0 {
		return 0
	}
	return cm.frames[idx].KvirtAddr
}

// allocRun implements the first-fit scan with obstruction-skip and
// lowest-index tie-break from spec.md §4.1, marking the run FIXED with
// PARENT on the first frame and CHILD on the rest. Caller holds
// coremapLock.
func (c *Coremap_t) allocRun(n int) int {
	if n <= 0 || n*PAGE_SIZE > c.bytesFree {
		return -1
	}
	i := 0
	for i+n <= len(c.frames) {
		if c.frames[i].State != FREE {
			i++
			continue
		}
		k := 0
		for k < n && i+k < len(c.frames) && c.frames[i+k].State == FREE {
			k++
		}
		if k == n {
			for j := 0; j < n; j++ {
				f := &c.frames[i+j]
				f.State = FIXED
				f.BlockSize = n
				if j == 0 {
					f.BlockRole = PARENT
				} else {
					f.BlockRole = CHILD
				}
			}
			c.bytesFree -= n * PAGE_SIZE
			return i
		}
		// obstruction at i+k: resume scanning just past it.
		i = i + k + 1
	}
	return -1
}

/// FreeKpages resolves the descriptor with matching kvirtAddr and
/// releases its whole block. A mismatched address, a CHILD frame, or a
/// NO_REUSE frame is a silent no-op — permissive by spec.md §4.1/§7,
/// promoted to a panic with a caller dump when defs.Harden is set.
func FreeKpages(kvirtAddr uintptr) {
	cm.coremapLock.Lock()
	defer cm.coremapLock.Unlock()

	idx := -1
	for i := range cm.frames {
		if cm.frames[i].KvirtAddr == kvirtAddr {
			idx = i
			break
		}
	}
	if idx < 0 || cm.frames[idx].BlockRole == CHILD || cm.frames[idx].Reusable == NO_REUSE {
		harden("mem: free of invalid/child/no-reuse frame")
		return
	}
	n := cm.frames[idx].BlockSize
	for j := 0; j < n && idx+j < len(cm.frames); j++ {
		f := &cm.frames[idx+j]
		f.State = FREE
		f.BlockRole = CHILD
		f.Owner = nil
	}
	cm.bytesFree += n * PAGE_SIZE
}

/// KpageBytes views the page at kernel virtual alias kva as a
/// PAGE_SIZE byte slice, the direct-map aliasing named in spec.md §3
/// exposed for callers (the vm package's fault and copy paths) that
/// need to read or zero a frame's contents.
func KpageBytes(kva uintptr) []byte {
	cm.coremapLock.Lock()
	defer cm.coremapLock.Unlock()
	if len(cm.ram) == 0 {
		return nil
	}
	base := uintptr(unsafe.Pointer(&cm.ram[0]))
	off := int(kva - base)
	if off < 0 || off+PAGE_SIZE > len(cm.ram) {
		harden("KpageBytes: address outside RAM backing")
		return nil
	}
	return cm.ram[off : off+PAGE_SIZE]
}

/// UsedBytes returns ram_size - bytes_free.
func UsedBytes() int {
	cm.coremapLock.Lock()
	defer cm.coremapLock.Unlock()
	return cm.ramSize - cm.bytesFree
}
