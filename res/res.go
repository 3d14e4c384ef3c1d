// Package res admits kernel-heap-equivalent work against a global
// ceiling before a loop starts an iteration, so a long copy fails with
// ENOHEAP up front rather than panicking partway through with pages
// already allocated and no way to back them out.
package res

import "sync/atomic"

// heapCeiling is this hosted kernel core's stand-in for "kernel heap
// pages currently available"; it is generous since this module has no
// real fixed-size kernel heap, but the admission discipline itself is
// what the VM fault path and Uio transfers are tested against.
const heapCeiling = 1 << 24

var heapUsed int64

/// Resadd_noblock tries to reserve n units against the heap ceiling
/// without blocking, reporting whether the reservation succeeded.
func Resadd_noblock(n int) bool {
	if n <= 0 {
		return true
	}
	v := atomic.AddInt64(&heapUsed, int64(n))
	if v <= heapCeiling {
		return true
	}
	atomic.AddInt64(&heapUsed, -int64(n))
	return false
}

/// Resdel gives back n units previously reserved via Resadd_noblock.
func Resdel(n int) {
	if n <= 0 {
		return
	}
	atomic.AddInt64(&heapUsed, -int64(n))
}
