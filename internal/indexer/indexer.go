// Package indexer ingests plain-text documents into long-term memory.
//
// A run walks a directory tree for .txt and .md files, splits each file
// into overlapping chunks, and stores the chunks with provenance
// metadata so retrieval can point back at the original file. File reads
// run concurrently under a bounded group; the memory layer serializes
// the actual writes.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"

	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/memory"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 200

	// DefaultConcurrency bounds how many files are read and split at once.
	DefaultConcurrency = 4
)

// Sink receives chunked documents. *memory.Service satisfies it.
type Sink interface {
	AddDocuments(ctx context.Context, docs []memory.Document) ([]string, error)
}

// Indexer chunks files and feeds them to a document sink.
type Indexer struct {
	sink        Sink
	splitter    textsplitter.TextSplitter
	concurrency int
}

// New builds an Indexer over the given sink. Non-positive sizes fall
// back to the defaults, and the overlap is clamped below the chunk size.
func New(sink Sink, chunkSize, chunkOverlap, concurrency int) *Indexer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Indexer{
		sink: sink,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		concurrency: concurrency,
	}
}

// Stats summarizes one indexing run.
type Stats struct {
	Files  int // files processed without error
	Chunks int // chunks written to the sink
	Failed int // files that could not be read, split, or stored
}

func (s *Stats) String() string {
	return fmt.Sprintf("%d files, %d chunks, %d failed", s.Files, s.Chunks, s.Failed)
}

// Index ingests the file or directory tree at root. Per-file failures
// are logged and counted rather than aborting the run; only a bad root
// or a cancelled context stops it early.
func (idx *Indexer) Index(ctx context.Context, root string) (*Stats, error) {
	timer := logging.StartTimer(logging.CategoryIndexer, "index")
	defer timer.Stop()

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("index root: %w", err)
	}

	base := root
	var files []string
	if info.IsDir() {
		files, err = collectFiles(root)
		if err != nil {
			return nil, err
		}
	} else {
		if !supported(root) {
			return nil, fmt.Errorf("unsupported file type: %s", root)
		}
		base = filepath.Dir(root)
		files = []string{root}
	}

	stats := &Stats{}
	if len(files) == 0 {
		logging.Indexer("no indexable files under %s", root)
		return stats, nil
	}
	logging.Indexer("indexing %d files under %s", len(files), root)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	var mu sync.Mutex
	for _, path := range files {
		path := path
		g.Go(func() error {
			chunks, err := idx.indexFile(gctx, base, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				stats.Failed++
				logging.IndexerError("failed to index %s: %v", path, err)
				return nil
			}
			stats.Files++
			stats.Chunks += chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	logging.Indexer("indexed %s", stats)
	return stats, nil
}

// indexFile reads, splits, and stores a single file, returning the
// number of chunks written.
func (idx *Indexer) indexFile(ctx context.Context, base, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		logging.IndexerDebug("skipping empty file %s", path)
		return 0, nil
	}

	chunks, err := idx.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("split %s: %w", path, err)
	}

	source := path
	if rel, relErr := filepath.Rel(base, path); relErr == nil {
		source = rel
	}

	docs := make([]memory.Document, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		docs = append(docs, memory.Document{
			Content: chunk,
			Metadata: map[string]string{
				"source": source,
				"chunk":  strconv.Itoa(len(docs)),
			},
		})
	}
	if len(docs) == 0 {
		return 0, nil
	}

	if _, err := idx.sink.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("store %s: %w", path, err)
	}
	logging.IndexerDebug("indexed %s (%d chunks)", source, len(docs))
	return len(docs), nil
}

// collectFiles walks root for supported files, skipping hidden
// directories such as .git and the agent's own state dir.
func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.IndexerWarn("skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}
