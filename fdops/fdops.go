// Package fdops names the VFS collaborator contract: the interface
// open() resolves a path against, and read/write/lseek/stat operate
// through. The VFS itself is an out-of-scope external collaborator
// (spec.md §1); this package only declares the boundary, grounded on
// the VOP_*/vfs_* call sites in
// original_source/kern/syscall/file_syscall.c. A real VFS and the
// vfstest in-memory stand-in this module's own tests use both satisfy
// it.
package fdops

import (
	"defs"
	"stat"
	"ustr"
)

/// Vfsnode_i is the operations a VFS node must support for this
/// kernel core's fd table to open, read, write, seek, and stat it.
type Vfsnode_i interface {
	/// Read copies up to uio's remaining capacity, starting at offset,
	/// into uio, returning bytes transferred.
	Read(uio Uio_i, offset int) (int, defs.Err_t)
	/// Write copies from uio into the node starting at offset.
	Write(uio Uio_i, offset int) (int, defs.Err_t)
	/// Stat fills st with the node's metadata.
	Stat(st *stat.Stat_t) defs.Err_t
	/// Isseekable reports whether lseek is meaningful on this node
	/// (false for pipe- and console-like nodes, per VOP_ISSEEKABLE).
	Isseekable() bool
	/// Refup increments the node's VFS-level reference count, called
	/// once per successful open (mirroring VOP_INCREF).
	Refup()
	/// Refdown decrements the node's VFS-level reference count and
	/// releases the node when it reaches zero (mirroring vfs_close).
	Refdown()
}

/// Uio_i is the minimal transfer interface a Vfsnode_i implementation
/// reads from or writes into; vm.Userbuf_t and vm.Fakeubuf_t both
/// satisfy it without fdops needing to import vm (which itself does
/// not depend on fdops), keeping the VFS boundary a leaf dependency.
type Uio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

/// Vfs_i is the name-resolution half of the VFS collaborator: turning
/// a path into a node (open), and the cwd operations getcwd/chdir
/// delegate to once a node is in hand.
type Vfs_i interface {
	/// Open resolves path under flags/mode to a node, creating it if
	/// O_CREAT is set and it does not exist.
	Open(path ustr.Ustr, flags, mode int) (Vfsnode_i, defs.Err_t)
	/// Lookup resolves path to a node without creating or opening it,
	/// used by chdir.
	Lookup(path ustr.Ustr) (Vfsnode_i, defs.Err_t)
}
