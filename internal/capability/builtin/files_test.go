package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFile(t *testing.T) {
	ws := t.TempDir()
	c := writeFile(ws)

	out, err := c.Execute(context.Background(), map[string]any{
		"file_path": "notes/plan.md",
		"content":   "# Plan\n1. do the thing\n",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	got := decodePayload(t, out)
	if got["status"] != "success" || got["file_path"] != "notes/plan.md" {
		t.Errorf("unexpected payload: %v", got)
	}

	data, err := os.ReadFile(filepath.Join(ws, "notes", "plan.md"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "# Plan\n1. do the thing\n" {
		t.Errorf("wrong content: %q", data)
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	ws := t.TempDir()
	c := writeFile(ws)

	for _, content := range []string{"first", "second"} {
		_, err := c.Execute(context.Background(), map[string]any{
			"file_path": "out.txt",
			"content":   content,
		})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}

	data, _ := os.ReadFile(filepath.Join(ws, "out.txt"))
	if string(data) != "second" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestWriteFileRejectsEscapes(t *testing.T) {
	ws := t.TempDir()
	outside := filepath.Join(filepath.Dir(ws), "escaped.txt")
	c := writeFile(ws)

	for _, path := range []string{"../escaped.txt", outside, "a/../../escaped.txt"} {
		out, err := c.Execute(context.Background(), map[string]any{
			"file_path": path,
			"content":   "nope",
		})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		msg, _ := decodePayload(t, out)["error"].(string)
		if !strings.Contains(msg, "outside the workspace") {
			t.Errorf("path %q should be rejected, got: %s", path, out)
		}
	}

	if _, err := os.Stat(outside); !os.IsNotExist(err) {
		t.Error("a file escaped the workspace")
	}
}

func TestWriteFileAbsoluteInsideWorkspace(t *testing.T) {
	ws := t.TempDir()
	c := writeFile(ws)
	target := filepath.Join(ws, "abs.txt")

	out, err := c.Execute(context.Background(), map[string]any{
		"file_path": target,
		"content":   "ok",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if decodePayload(t, out)["status"] != "success" {
		t.Errorf("absolute path inside the workspace should work, got: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestConfinePath(t *testing.T) {
	ws := t.TempDir()

	abs, err := confinePath(ws, "sub/dir/file.txt")
	if err != nil {
		t.Fatalf("confinePath failed: %v", err)
	}
	if !strings.HasPrefix(abs, ws) {
		t.Errorf("resolved path %q not under workspace %q", abs, ws)
	}

	if _, err := confinePath(ws, ""); err == nil {
		t.Error("empty path should be rejected")
	}
	if _, err := confinePath(ws, ".."); err == nil {
		t.Error("parent path should be rejected")
	}
}
