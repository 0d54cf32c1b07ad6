package tools

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileCreatesAndOverwrites(t *testing.T) {
	ws, dir := newTestWorkspace(t)
	tool := NewWriteFileTool(ws)

	out := tool.Write("out.txt", "first\n", "")
	if !out.OK {
		t.Fatalf("write failed: %s", out.Summary)
	}
	if out.Summary != "File successfully overwritten." {
		t.Fatalf("summary = %q", out.Summary)
	}

	out = tool.Write("out.txt", "second\n", "overwrite")
	if !out.OK {
		t.Fatalf("overwrite failed: %s", out.Summary)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestWriteFileAppend(t *testing.T) {
	ws, dir := newTestWorkspace(t)
	tool := NewWriteFileTool(ws)

	if out := tool.Write("log.txt", "a\n", ""); !out.OK {
		t.Fatalf("write failed: %s", out.Summary)
	}
	out := tool.Write("log.txt", "b\n", "append")
	if !out.OK {
		t.Fatalf("append failed: %s", out.Summary)
	}
	if out.Summary != "File successfully appended to." {
		t.Fatalf("summary = %q", out.Summary)
	}

	data, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestWriteFileRequiresExistingParent(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	out := NewWriteFileTool(ws).Write("missing/dir/file.txt", "x", "")
	if out.OK {
		t.Fatal("write into missing directory succeeded")
	}
}

func TestWriteFileRejectsEscape(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	out := NewWriteFileTool(ws).Write("../escape.txt", "x", "")
	if out.OK {
		t.Fatal("escaping write succeeded")
	}
	if out.Summary != "Path is outside working directory" {
		t.Fatalf("summary = %q", out.Summary)
	}
}
