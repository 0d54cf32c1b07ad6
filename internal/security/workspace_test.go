package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResolveInsideWorkspace(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ws.Resolve("a.txt")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want, _ := filepath.EvalSymlinks(target)
	if got != want {
		t.Fatalf("resolved %q, want %q", got, want)
	}
}

func TestResolveRejectsDotDotEscape(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"../outside.txt", "sub/../../outside.txt", "/etc/passwd"} {
		if _, err := ws.Resolve(path); err == nil {
			t.Fatalf("resolve %q: expected rejection, got nil", path)
		}
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(secret, link); err != nil {
		t.Fatal(err)
	}

	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Resolve("link.txt"); !errors.Is(err, ErrPathOutsideWorkspace) {
		t.Fatalf("expected ErrPathOutsideWorkspace, got %v", err)
	}
}

func TestResolveForWriteNewFile(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ws.ResolveForWrite("new.txt")
	if err != nil {
		t.Fatalf("resolve for write: %v", err)
	}
	if filepath.Base(got) != "new.txt" {
		t.Fatalf("unexpected resolved path %q", got)
	}

	// Parent must exist: a path under a missing directory fails.
	if _, err := ws.ResolveForWrite("missing/new.txt"); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestResolveForWriteRejectsEscape(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.ResolveForWrite("../escape.txt"); !errors.Is(err, ErrPathOutsideWorkspace) {
		t.Fatalf("expected ErrPathOutsideWorkspace, got %v", err)
	}
}
