package proc

import (
	"bounds"
	"defs"
	"fd"
	"fdops"
	"limits"
	"res"
	"stat"
	"ustr"
	"vm"
)

/// Open validates flags and path, scans descriptor slots 3..OPEN_MAX
/// for the first empty one, opens path against vfs, and installs a
/// fresh ref_count-1 handle there. Returns the slot index.
func (p *Process_t) Open(vfs fdops.Vfs_i, path ustr.Ustr, flags, mode int) (int, defs.Err_t) {
	if len(path) == 0 {
		return -1, -defs.EINVAL
	}
	if len(path) > limits.PATH_MAX {
		return -1, -defs.ENAMETOOLONG
	}
	if flags < 0 || flags > defs.O_flagmax {
		return -1, -defs.EINVAL
	}
	accmode := flags & defs.O_ACCMODE
	if accmode != defs.O_RDONLY && accmode != defs.O_WRONLY && accmode != defs.O_RDWR {
		return -1, -defs.EINVAL
	}

	cpath := p.Cwd.Canonicalpath(path)
	node, err := vfs.Open(cpath, flags, mode)
	if err != 0 {
		return -1, err
	}
	node.Refup()

	p.Lock()
	defer p.Unlock()
	slot := -1
	for i := 3; i < limits.OPEN_MAX; i++ {
		if p.Fds[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		node.Refdown()
		return -1, -defs.ENFILE
	}
	p.Fds[slot] = fd.MkHandle(node, accmode)
	return slot, 0
}

/// Close releases fd's slot and decrements the handle's ref_count; when
/// it reaches zero the handle releases its VFS node. Bounds-checked per
/// spec.md §4.4.
func (p *Process_t) Close(fd int) defs.Err_t {
	p.Lock()
	defer p.Unlock()
	if fd < 0 || fd >= limits.OPEN_MAX || p.Fds[fd] == nil {
		harden("close of a bad or already-closed fd")
		return -defs.EBADF
	}
	h := p.Fds[fd]
	p.Fds[fd] = nil
	h.Decref()
	return 0
}

/// Read transfers up to uio's remaining capacity from fd's handle at
/// its current offset into uio, advancing the offset.
func (p *Process_t) Read(fd int, uio vm.Uio_i) (int, defs.Err_t) {
	return p.rw(fd, uio, false)
}

/// Write transfers uio's contents into fd's handle at its current
/// offset, advancing the offset.
func (p *Process_t) Write(fd int, uio vm.Uio_i) (int, defs.Err_t) {
	return p.rw(fd, uio, true)
}

func (p *Process_t) rw(fd int, uio vm.Uio_i, write bool) (int, defs.Err_t) {
	h, err := p.handle(fd)
	if err != 0 {
		return -1, err
	}

	h.Lock()
	defer h.Unlock()

	if write && h.AccessMode == defs.O_RDONLY {
		return -1, -defs.EBADF
	}
	if !write && h.AccessMode == defs.O_WRONLY {
		return -1, -defs.EBADF
	}

	bound := bounds.B_FDTABLE_T_READ
	if write {
		bound = bounds.B_FDTABLE_T_WRITE
	}
	if !res.Resadd_noblock(bounds.Bounds(bound)) {
		return -1, -defs.ENOHEAP
	}
	defer res.Resdel(bounds.Bounds(bound))

	var n int
	if write {
		n, err = h.Node.Write(uio, h.Offset)
	} else {
		n, err = h.Node.Read(uio, h.Offset)
	}
	if err != 0 {
		return -1, err
	}
	h.Offset += n
	return n, 0
}

/// Lseek recomputes fd's handle offset per whence, failing ESPIPE if
/// the node is not seekable and EINVAL on an out-of-range result.
func (p *Process_t) Lseek(fd int, pos int, whence int) (int, defs.Err_t) {
	h, err := p.handle(fd)
	if err != 0 {
		return -1, err
	}
	h.Lock()
	defer h.Unlock()

	if whence != defs.SEEK_SET && whence != defs.SEEK_CUR && whence != defs.SEEK_END {
		return -1, -defs.EINVAL
	}
	if !h.Node.Isseekable() {
		return -1, -defs.ESPIPE
	}

	var newoff int
	switch whence {
	case defs.SEEK_SET:
		newoff = pos
	case defs.SEEK_CUR:
		newoff = h.Offset + pos
	case defs.SEEK_END:
		var st stat.Stat_t
		if err := h.Node.Stat(&st); err != 0 {
			return -1, err
		}
		newoff = int(st.Size()) + pos
	}
	if newoff < 0 {
		return -1, -defs.EINVAL
	}
	h.Offset = newoff
	return newoff, 0
}

/// Dup2 points newfd's slot at oldfd's handle, incrementing its
/// ref_count. dup2(fd, fd) succeeds and returns fd, per POSIX (the
/// corrected behavior from DESIGN.md's open-question decision — the
/// original source treats it as EBADF).
func (p *Process_t) Dup2(oldfd, newfd int) (int, defs.Err_t) {
	p.Lock()
	defer p.Unlock()

	if oldfd < 0 || oldfd >= limits.OPEN_MAX || p.Fds[oldfd] == nil {
		return -1, -defs.EBADF
	}
	if newfd < 0 || newfd >= limits.OPEN_MAX {
		return -1, -defs.EBADF
	}
	if oldfd == newfd {
		return newfd, 0
	}
	if p.Fds[newfd] != nil {
		old := p.Fds[newfd]
		p.Fds[newfd] = nil
		old.Decref()
	}
	p.Fds[newfd] = p.Fds[oldfd]
	p.Fds[newfd].Incref()
	return newfd, 0
}

/// Chdir resolves path against vfs and, on success, updates Cwd.
func (p *Process_t) Chdir(vfs fdops.Vfs_i, path ustr.Ustr) defs.Err_t {
	if len(path) == 0 {
		return -defs.EINVAL
	}
	p.Cwd.Lock()
	defer p.Cwd.Unlock()

	cpath := p.Cwd.Canonicalpath(path)
	node, err := vfs.Lookup(cpath)
	if err != 0 {
		return err
	}
	p.Cwd.Node = node
	p.Cwd.Path = cpath
	return 0
}

/// Getcwd writes the current working directory's path into uio and
/// returns the byte count transferred.
func (p *Process_t) Getcwd(uio vm.Uio_i) (int, defs.Err_t) {
	p.Cwd.Lock()
	defer p.Cwd.Unlock()
	return uio.Uiowrite(p.Cwd.Path)
}

// handle bounds-checks fdn and returns its handle.
func (p *Process_t) handle(fdn int) (*fd.Handle_t, defs.Err_t) {
	p.Lock()
	defer p.Unlock()
	if fdn < 0 || fdn >= limits.OPEN_MAX || p.Fds[fdn] == nil {
		return nil, -defs.EBADF
	}
	return p.Fds[fdn], 0
}
