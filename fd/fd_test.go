package fd

import (
	"testing"

	"ustr"
	"vfstest"
)

func TestIncrefDecref(t *testing.T) {
	n := vfstest.MkNode()
	h := MkHandle(n, 0)
	if h.RefCount != 1 {
		t.Fatalf("MkHandle: got ref_count %v, want 1", h.RefCount)
	}

	h.Incref()
	if h.RefCount != 2 {
		t.Fatalf("incref: got ref_count %v, want 2", h.RefCount)
	}

	if zero := h.Decref(); zero {
		t.Fatalf("decref from 2 must not report zero")
	}
	if h.RefCount != 1 {
		t.Fatalf("decref: got ref_count %v, want 1", h.RefCount)
	}

	if zero := h.Decref(); !zero {
		t.Fatalf("decref from 1 must report zero")
	}
	if h.RefCount != 0 {
		t.Fatalf("decref: got ref_count %v, want 0", h.RefCount)
	}
}

func TestDecrefUnderflowPanics(t *testing.T) {
	n := vfstest.MkNode()
	h := MkHandle(n, 0)
	h.Decref()

	defer func() {
		if recover() == nil {
			t.Fatalf("decref below zero must panic")
		}
	}()
	h.Decref()
}

func TestCwdFullpathAbsoluteUnchanged(t *testing.T) {
	root := vfstest.MkNode()
	cwd := MkRootCwd(root)
	cwd.Path = ustr.Ustr("/usr/bin")

	got := cwd.Fullpath(ustr.Ustr("/etc/passwd"))
	if got.String() != "/etc/passwd" {
		t.Fatalf("fullpath of an absolute path must pass through unchanged: got %q", got.String())
	}
}

func TestCwdFullpathRelativeJoinsCwd(t *testing.T) {
	root := vfstest.MkNode()
	cwd := MkRootCwd(root)
	cwd.Path = ustr.Ustr("/usr/bin")

	got := cwd.Fullpath(ustr.Ustr("ls"))
	if got.String() != "/usr/bin/ls" {
		t.Fatalf("fullpath of a relative name: got %q, want %q", got.String(), "/usr/bin/ls")
	}
}

func TestCwdCanonicalpathCollapsesDotDot(t *testing.T) {
	root := vfstest.MkNode()
	cwd := MkRootCwd(root)
	cwd.Path = ustr.Ustr("/usr/bin")

	got := cwd.Canonicalpath(ustr.Ustr("../lib/../lib64"))
	if got.String() != "/usr/lib64" {
		t.Fatalf("canonicalpath did not collapse '..' components: got %q", got.String())
	}
}

func TestMkRootCwdIsRoot(t *testing.T) {
	root := vfstest.MkNode()
	cwd := MkRootCwd(root)
	if cwd.Path.String() != "/" {
		t.Fatalf("MkRootCwd: got path %q, want %q", cwd.Path.String(), "/")
	}
	if cwd.Node != root {
		t.Fatalf("MkRootCwd did not retain the given node")
	}
}
