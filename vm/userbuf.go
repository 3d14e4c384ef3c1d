package vm

import (
	"defs"
	"limits"
)

/// Uio_i is the interface the file descriptor table reads/writes
/// through: a transfer between a kernel buffer and some user-facing
/// buffer (a real user address range, an iovec array, or — in
/// kernel-only tests — a plain Go byte slice). Grounded on the
/// teacher's Userbuf_t/Useriovec_t/Fakeubuf_t family, generalized to a
/// named interface so the fd table's Read/Write (proc.Process_t) don't
/// need to know which kind of buffer they were handed.
type Uio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

/// Userbuf_t assists reading and writing a range of one address
/// space's user memory through the VM fault path, one PAGE_SIZE-aligned
/// chunk at a time.
type Userbuf_t struct {
	as     *AddrSpace_t
	uva    uintptr
	length int
	off    int
}

/// UbufInit initializes ub to address as's range [uva, uva+length).
func UbufInit(as *AddrSpace_t, uva uintptr, length int) *Userbuf_t {
	return &Userbuf_t{as: as, uva: uva, length: length}
}

/// Remain returns the number of unread/unwritten bytes left.
func (ub *Userbuf_t) Remain() int {
	return ub.length - ub.off
}

/// Totalsz reports the buffer's total size in bytes.
func (ub *Userbuf_t) Totalsz() int {
	return ub.length
}

func (ub *Userbuf_t) tx(buf []uint8, write bool) (int, defs.Err_t) {
	ret := 0
	for len(buf) != 0 && ub.off != ub.length {
		va := ub.uva + uintptr(ub.off)
		faultType := FaultRead
		if write {
			faultType = FaultWrite
		}
		if err := VmFault(ub.as, faultType, va); err != 0 {
			return ret, err
		}

		ub.as.Lock_pmap()
		vpn := va &^ uintptr(limits.PAGE_SIZE-1)
		pte, ok := ub.as.ptes.lookup(vpn)
		if !ok {
			ub.as.Unlock_pmap()
			return ret, -defs.EFAULT
		}
		off := int(va - vpn)
		page := kbytes(pte.Phys)
		ub.as.Unlock_pmap()

		avail := page[off:]
		if end := ub.off + len(avail); end > ub.length {
			avail = avail[:ub.length-ub.off]
		}
		var c int
		if write {
			c = copy(avail, buf)
		} else {
			c = copy(buf, avail)
		}
		buf = buf[c:]
		ub.off += c
		ret += c
		if c == 0 {
			break
		}
	}
	return ret, 0
}

/// Uioread copies from user memory into dst.
func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return ub.tx(dst, false)
}

/// Uiowrite copies src into user memory.
func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return ub.tx(src, true)
}

/// Fakeubuf_t implements Uio_i over a plain kernel byte slice, used
/// when the kernel needs to treat internal memory like user memory —
/// the teacher's own rationale for Fakeubuf_t, reused verbatim here for
/// tests that exercise fd.Handle_t without a real address space.
type Fakeubuf_t struct {
	buf []uint8
}

/// FakeInit sets up the fake buffer with the provided slice.
func FakeInit(buf []uint8) *Fakeubuf_t {
	return &Fakeubuf_t{buf: buf}
}

/// Remain returns the number of bytes left in the fake buffer.
func (fb *Fakeubuf_t) Remain() int {
	return len(fb.buf)
}

/// Totalsz returns the total length of the fake buffer.
func (fb *Fakeubuf_t) Totalsz() int {
	return len(fb.buf)
}

func (fb *Fakeubuf_t) tx(buf []uint8, tofbuf bool) (int, defs.Err_t) {
	var c int
	if tofbuf {
		c = copy(fb.buf, buf)
	} else {
		c = copy(buf, fb.buf)
	}
	fb.buf = fb.buf[c:]
	return c, 0
}

/// Uioread copies from the fake buffer into dst.
func (fb *Fakeubuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return fb.tx(dst, false)
}

/// Uiowrite copies src into the fake buffer.
func (fb *Fakeubuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return fb.tx(src, true)
}
