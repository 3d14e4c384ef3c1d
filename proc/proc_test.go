package proc

import (
	"testing"

	"defs"
	"fd"
	"mem"
	"ustr"
	"vfstest"
	"vm"
)

type inlineSpawner struct{}

func (inlineSpawner) Spawn(name string, entry func()) {
	entry()
}

func mkProcess(t *testing.T, fs *vfstest.Fs_t) *Process_t {
	t.Helper()
	p, err := Table.Create(1)
	if err != 0 {
		t.Fatalf("Table.Create failed: %v", err)
	}
	mem.Init(1<<20, 0)
	p.As = vm.Create()
	root, e := fs.Open(ustr.MkUstrRoot(), defs.O_RDONLY|defs.O_CREAT, 0)
	if e != 0 {
		t.Fatalf("fs.Open(/) failed: %v", e)
	}
	p.Cwd = fd.MkRootCwd(root)
	return p
}

func TestScenario1_WriteReadRoundTrip(t *testing.T) {
	fs := vfstest.MkFs()
	p := mkProcess(t, fs)

	fdn, err := p.Open(fs, ustr.Ustr("/f"), defs.O_RDWR|defs.O_CREAT, 0)
	if err != 0 || fdn != 3 {
		t.Fatalf("open: got fd=%v err=%v, want fd=3 err=0", fdn, err)
	}

	n, err := p.Write(fdn, vm.FakeInit([]byte("hello")))
	if err != 0 || n != 5 {
		t.Fatalf("write: got n=%v err=%v, want n=5 err=0", n, err)
	}

	off, err := p.Lseek(fdn, 0, defs.SEEK_SET)
	if err != 0 || off != 0 {
		t.Fatalf("lseek: got off=%v err=%v, want off=0 err=0", off, err)
	}

	buf := make([]byte, 5)
	fub := vm.FakeInit(buf)
	n, err = p.Read(fdn, fub)
	if err != 0 || n != 5 {
		t.Fatalf("read: got n=%v err=%v, want n=5 err=0", n, err)
	}
	if string(buf) != "hello" {
		t.Fatalf("read returned %q, want %q", buf, "hello")
	}

	if err := p.Close(fdn); err != 0 {
		t.Fatalf("close failed: %v", err)
	}
}

func TestScenario2_WriteOnRdonlyIsEbadf(t *testing.T) {
	fs := vfstest.MkFs()
	p := mkProcess(t, fs)
	fs.Put(ustr.Ustr("/f"), vfstest.MkNode())

	fdn, err := p.Open(fs, ustr.Ustr("/f"), defs.O_RDONLY, 0)
	if err != 0 {
		t.Fatalf("open failed: %v", err)
	}
	_, err = p.Write(fdn, vm.FakeInit([]byte("x")))
	if err != -defs.EBADF {
		t.Fatalf("write on RDONLY handle: got %v, want EBADF", err)
	}
}

func TestScenario3_ReadOnWronlyIsEbadf(t *testing.T) {
	fs := vfstest.MkFs()
	p := mkProcess(t, fs)
	fs.Put(ustr.Ustr("/f"), vfstest.MkNode())

	fdn, err := p.Open(fs, ustr.Ustr("/f"), defs.O_WRONLY, 0)
	if err != 0 {
		t.Fatalf("open failed: %v", err)
	}
	buf := make([]byte, 1)
	_, err = p.Read(fdn, vm.FakeInit(buf))
	if err != -defs.EBADF {
		t.Fatalf("read on WRONLY handle: got %v, want EBADF", err)
	}
}

func TestScenario4_ForkExitWaitpid(t *testing.T) {
	fs := vfstest.MkFs()
	parent := mkProcess(t, fs)

	childPid, err := parent.Fork(inlineSpawner{}, func(child *Process_t) {
		child.Exit(7)
	})
	if err != 0 {
		t.Fatalf("fork failed: %v", err)
	}

	gotPid, status, err := parent.Waitpid(childPid, 0)
	if err != 0 {
		t.Fatalf("waitpid failed: %v", err)
	}
	if gotPid != childPid {
		t.Fatalf("waitpid returned pid %v, want %v", gotPid, childPid)
	}
	if !defs.WifExited(status) || defs.WexitStatus(status) != 7 {
		t.Fatalf("wait status decode: got %v, want exit code 7", status)
	}
}

func TestScenario5_LseekOnConsoleNodeIsEspipe(t *testing.T) {
	fs := vfstest.MkFs()
	p := mkProcess(t, fs)
	stdin := vfstest.MkConsoleNode()
	p.Fds[0] = fd.MkHandle(stdin, defs.O_RDONLY)

	if _, err := p.Lseek(0, 0, defs.SEEK_SET); err != -defs.ESPIPE {
		t.Fatalf("lseek on stdin: got %v, want ESPIPE", err)
	}
}

func TestForkIncrementsHandleRefcount(t *testing.T) {
	fs := vfstest.MkFs()
	parent := mkProcess(t, fs)
	fdn, err := parent.Open(fs, ustr.Ustr("/f"), defs.O_RDWR|defs.O_CREAT, 0)
	if err != 0 {
		t.Fatalf("open failed: %v", err)
	}
	h := parent.Fds[fdn]
	before := h.RefCount

	childPid, err := parent.Fork(inlineSpawner{}, func(child *Process_t) {
		child.Exit(0)
	})
	if err != 0 {
		t.Fatalf("fork failed: %v", err)
	}
	if h.RefCount != before+1 {
		t.Fatalf("fork must increment inherited handle ref_count: before=%v after=%v", before, h.RefCount)
	}
	parent.Waitpid(childPid, 0)
}

func TestDup2SameFdSucceeds(t *testing.T) {
	fs := vfstest.MkFs()
	p := mkProcess(t, fs)
	fdn, err := p.Open(fs, ustr.Ustr("/f"), defs.O_RDWR|defs.O_CREAT, 0)
	if err != 0 {
		t.Fatalf("open failed: %v", err)
	}
	got, err := p.Dup2(fdn, fdn)
	if err != 0 || got != fdn {
		t.Fatalf("dup2(fd, fd): got fd=%v err=%v, want fd=%v err=0", got, err, fdn)
	}
}

func TestCloseFreesSlotAndDecrementsRefcount(t *testing.T) {
	fs := vfstest.MkFs()
	p := mkProcess(t, fs)
	fdn, err := p.Open(fs, ustr.Ustr("/f"), defs.O_RDWR|defs.O_CREAT, 0)
	if err != 0 {
		t.Fatalf("open failed: %v", err)
	}
	h := p.Fds[fdn]
	if err := p.Close(fdn); err != 0 {
		t.Fatalf("close failed: %v", err)
	}
	if p.Fds[fdn] != nil {
		t.Fatalf("close did not free the descriptor slot")
	}
	if h.RefCount != 0 {
		t.Fatalf("close did not decrement ref_count to zero: got %v", h.RefCount)
	}
}
