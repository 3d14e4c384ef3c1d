// Package vfstest is a minimal in-memory stand-in for the VFS
// collaborator (fdops.Vfsnode_i / fdops.Vfs_i), used only by this
// module's own tests: a real kernel core wires fd/proc against a real
// filesystem (out of scope per spec.md §1), but exercising open/read/
// write/lseek/dup2/chdir/getcwd needs something on the other side of
// that interface. Path->node lookup is a plain mutex-guarded map: a
// real VFS's dentry cache would be a hash table, but that structure's
// only reason to live in this module would be to back this test-only
// stand-in, so it is inlined here rather than kept as its own package.
package vfstest

import (
	"sync"

	"defs"
	"fdops"
	"stat"
	"ustr"
)

/// Node_t is an in-memory file: a byte buffer plus a VFS-level
/// reference count and a seekable flag (console-like nodes set this
/// false, matching VOP_ISSEEKABLE's use in original_source).
type Node_t struct {
	mu         sync.Mutex
	data       []byte
	refcount   int
	seekable   bool
}

/// MkNode creates an empty, seekable in-memory node.
func MkNode() *Node_t {
	return &Node_t{seekable: true}
}

/// MkConsoleNode creates a non-seekable in-memory node, standing in
/// for stdin/stdout/stderr.
func MkConsoleNode() *Node_t {
	return &Node_t{seekable: false}
}

/// Read copies the node's bytes from offset into uio, up to uio's
/// remaining capacity.
func (n *Node_t) Read(uio fdops.Uio_i, offset int) (int, defs.Err_t) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if offset >= len(n.data) {
		return 0, 0
	}
	return uio.Uiowrite(n.data[offset:])
}

/// Write copies uio's contents into the node starting at offset,
/// growing the backing buffer as needed.
func (n *Node_t) Write(uio fdops.Uio_i, offset int) (int, defs.Err_t) {
	n.mu.Lock()
	defer n.mu.Unlock()

	buf := make([]byte, uio.Remain())
	got, err := uio.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	buf = buf[:got]

	end := offset + got
	if end > len(n.data) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:end], buf)
	return got, 0
}

/// Stat fills st with the node's size.
func (n *Node_t) Stat(st *stat.Stat_t) defs.Err_t {
	n.mu.Lock()
	defer n.mu.Unlock()
	st.Wsize(uint(len(n.data)))
	return 0
}

/// Isseekable reports the node's seekable flag.
func (n *Node_t) Isseekable() bool {
	return n.seekable
}

/// Refup increments the node's VFS reference count.
func (n *Node_t) Refup() {
	n.mu.Lock()
	n.refcount++
	n.mu.Unlock()
}

/// Refdown decrements the node's VFS reference count. Going negative
/// is a caller bug; it is neither checked nor reported here.
func (n *Node_t) Refdown() {
	n.mu.Lock()
	n.refcount--
	n.mu.Unlock()
}

/// Fs_t is the in-memory filesystem: a path->*Node_t table.
type Fs_t struct {
	mu    sync.Mutex
	nodes map[string]*Node_t
}

/// MkFs creates an empty in-memory filesystem rooted at "/".
func MkFs() *Fs_t {
	return &Fs_t{nodes: make(map[string]*Node_t)}
}

/// Open resolves path, creating an empty node when O_CREAT is set and
/// no node exists yet.
func (fs *Fs_t) Open(path ustr.Ustr, flags, mode int) (fdops.Vfsnode_i, defs.Err_t) {
	key := path.String()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if n, ok := fs.nodes[key]; ok {
		return n, 0
	}
	if flags&defs.O_CREAT == 0 {
		return nil, -defs.EFAULT
	}
	n := MkNode()
	fs.nodes[key] = n
	return n, 0
}

/// Lookup resolves path without creating it.
func (fs *Fs_t) Lookup(path ustr.Ustr) (fdops.Vfsnode_i, defs.Err_t) {
	key := path.String()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.nodes[key]
	if !ok {
		return nil, -defs.EFAULT
	}
	return n, 0
}

/// Put installs an already-constructed node at path, for tests that
/// need to seed stdin/stdout/stderr-like nodes directly.
func (fs *Fs_t) Put(path ustr.Ustr, n *Node_t) {
	fs.mu.Lock()
	fs.nodes[path.String()] = n
	fs.mu.Unlock()
}
