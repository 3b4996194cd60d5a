package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/MrSnowNB/project-alice/internal/memory"
)

type captureSink struct {
	mu   sync.Mutex
	docs []memory.Document
	err  error
}

func (c *captureSink) AddDocuments(_ context.Context, docs []memory.Document) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.docs = append(c.docs, docs...)
	return make([]string, len(docs)), nil
}

// sources counts stored chunks per source path.
func (c *captureSink) sources() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int)
	for _, d := range c.docs {
		out[d.Metadata["source"]]++
	}
	return out
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestIndexDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "notes.txt"), "Goroutines are cheap to start.")
	writeTestFile(t, filepath.Join(dir, "docs", "guide.md"), "Channels coordinate goroutines.")
	writeTestFile(t, filepath.Join(dir, "main.go"), "package main")
	writeTestFile(t, filepath.Join(dir, ".hidden", "secret.txt"), "should never be indexed")

	sink := &captureSink{}
	idx := New(sink, 0, 0, 0)

	stats, err := idx.Index(context.Background(), dir)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if stats.Files != 2 || stats.Chunks != 2 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	srcs := sink.sources()
	if len(srcs) != 2 {
		t.Fatalf("expected 2 sources, got %v", srcs)
	}
	if srcs["notes.txt"] != 1 {
		t.Errorf("notes.txt not indexed: %v", srcs)
	}
	if srcs[filepath.Join("docs", "guide.md")] != 1 {
		t.Errorf("docs/guide.md not indexed: %v", srcs)
	}
	for _, d := range sink.docs {
		if d.Metadata["chunk"] != "0" {
			t.Errorf("expected chunk index 0, got %q", d.Metadata["chunk"])
		}
	}
}

func TestIndexChunksLongFiles(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)
	writeTestFile(t, filepath.Join(dir, "big.txt"), content)

	sink := &captureSink{}
	idx := New(sink, 100, 20, 1)

	stats, err := idx.Index(context.Background(), dir)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if stats.Files != 1 {
		t.Fatalf("expected 1 file, got %+v", stats)
	}
	if stats.Chunks < 5 {
		t.Fatalf("expected the file to split into several chunks, got %d", stats.Chunks)
	}
	if stats.Chunks != len(sink.docs) {
		t.Fatalf("stats report %d chunks but sink saw %d", stats.Chunks, len(sink.docs))
	}
	for i, d := range sink.docs {
		if d.Metadata["source"] != "big.txt" {
			t.Fatalf("chunk %d has source %q", i, d.Metadata["source"])
		}
		if d.Metadata["chunk"] != strconv.Itoa(i) {
			t.Fatalf("chunk %d has index %q", i, d.Metadata["chunk"])
		}
	}
	if !strings.Contains(sink.docs[0].Content, "The quick brown fox") {
		t.Errorf("first chunk lost its leading text: %q", sink.docs[0].Content)
	}
}

func TestIndexSkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "empty.md"), "")
	writeTestFile(t, filepath.Join(dir, "blank.txt"), "  \n\t\n")

	sink := &captureSink{}
	stats, err := New(sink, 0, 0, 0).Index(context.Background(), dir)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if stats.Files != 2 || stats.Chunks != 0 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(sink.docs) != 0 {
		t.Fatalf("empty files produced %d docs", len(sink.docs))
	}
}

func TestIndexSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	writeTestFile(t, path, "Interfaces describe behavior.")

	sink := &captureSink{}
	stats, err := New(sink, 0, 0, 0).Index(context.Background(), path)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if stats.Files != 1 || stats.Chunks != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if srcs := sink.sources(); srcs["guide.md"] != 1 {
		t.Fatalf("expected source keyed by file name, got %v", srcs)
	}
}

func TestIndexSingleFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	writeTestFile(t, path, "package main")

	_, err := New(&captureSink{}, 0, 0, 0).Index(context.Background(), path)
	if err == nil {
		t.Fatal("expected an error for unsupported file type")
	}
	if !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIndexMissingRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := New(&captureSink{}, 0, 0, 0).Index(context.Background(), filepath.Join(dir, "nope"))
	if err == nil {
		t.Fatal("expected an error for a missing root")
	}
}

func TestIndexNoIndexableFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "main.go"), "package main")

	stats, err := New(&captureSink{}, 0, 0, 0).Index(context.Background(), dir)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if stats.Files != 0 || stats.Chunks != 0 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestIndexCountsSinkFailures(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeTestFile(t, filepath.Join(dir, "b.txt"), "bravo")

	sink := &captureSink{err: errors.New("store offline")}
	stats, err := New(sink, 0, 0, 1).Index(context.Background(), dir)
	if err != nil {
		t.Fatalf("per-file failures should not abort the run: %v", err)
	}
	if stats.Failed != 2 || stats.Files != 0 || stats.Chunks != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestIndexStopsWhenCanceled(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "alpha")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&captureSink{}, 0, 0, 1).Index(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	cases := map[string]bool{
		"notes.txt":    true,
		"README.md":    true,
		"UPPER.TXT":    true,
		"main.go":      false,
		"Makefile":     false,
		"doc.markdown": false,
	}
	for path, want := range cases {
		if got := supported(path); got != want {
			t.Errorf("supported(%q) = %v, want %v", path, got, want)
		}
	}
}
