// Package fd implements the file handle: the heap-allocated, possibly
// shared object a process's descriptor-table slots point to. Grounded
// on the teacher's Fd_t/Cwd_t (biscuit/src/fd/fd.go), generalized from
// its Fops_i "reopen on dup" idiom to the ref-counted handle spec.md
// §3/§4.4 calls for (ref_count incremented by fork/dup2, decremented
// by close, node released at zero).
package fd

import (
	"sync"

	"fdops"
	"ustr"
)

/// Handle_t is a heap-allocated file handle, possibly shared between
/// descriptor-table slots (via dup2) and between processes (via
/// fork). The mutex serializes read/write/lseek on this handle.
type Handle_t struct {
	sync.Mutex
	Node       fdops.Vfsnode_i
	Offset     int
	AccessMode int // defs.O_RDONLY / O_WRONLY / O_RDWR
	RefCount   int
}

/// MkHandle creates a handle with ref_count 1, as open() does.
func MkHandle(node fdops.Vfsnode_i, accessMode int) *Handle_t {
	return &Handle_t{Node: node, AccessMode: accessMode, RefCount: 1}
}

/// Incref increments the handle's reference count, called once per
/// descriptor-table slot referencing it (fork duplicates a slot,
/// dup2 points a second slot at it).
func (h *Handle_t) Incref() {
	h.Lock()
	h.RefCount++
	h.Unlock()
}

/// Decref decrements the reference count and reports whether it
/// reached zero, in which case Decref has already released the VFS
/// node via Refdown (the handle itself needs no explicit free in a
/// garbage-collected host; spec.md's "freed" is satisfied by becoming
/// unreferenced once Decref reports true and the last descriptor slot
/// is cleared).
func (h *Handle_t) Decref() bool {
	h.Lock()
	defer h.Unlock()
	h.RefCount--
	if h.RefCount < 0 {
		panic("fd: refcount underflow")
	}
	if h.RefCount == 0 {
		h.Node.Refdown()
		return true
	}
	return false
}

/// Cwd_t tracks a process's current working directory: the node it
/// names and its canonical path, used by getcwd and to resolve
/// relative paths passed to open/chdir.
type Cwd_t struct {
	sync.Mutex // serializes chdir against concurrent getcwd
	Node       fdops.Vfsnode_i
	Path       ustr.Ustr
}

/// Fullpath joins cwd with p if p is not already absolute.
func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	if p.IsAbsolute() {
		return p
	}
	return cwd.Path.Extend(p)
}

/// Canonicalpath resolves p relative to cwd and canonicalizes the
/// result (collapsing '.'/'..' components).
func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	return ustr.Canonicalize(cwd.Fullpath(p))
}

/// MkRootCwd constructs a Cwd_t rooted at "/".
func MkRootCwd(node fdops.Vfsnode_i) *Cwd_t {
	return &Cwd_t{Node: node, Path: ustr.MkUstrRoot()}
}
