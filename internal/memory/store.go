package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/MrSnowNB/project-alice/internal/logging"
)

// Store is the persistent vector store backing long-term memory. It
// wraps a single chromem-go collection; documents and their embeddings
// persist under the configured directory across sessions.
type Store struct {
	db         *chromem.DB
	embedder   Embedder
	collection string

	// writeMu serializes mutations. Reads go straight to chromem,
	// which handles concurrent queries itself.
	writeMu sync.Mutex
}

// NewStore opens (or creates) the persistent database at path with one
// collection for the agent's memory.
func NewStore(path, collection string, embedder Embedder) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	s := &Store{db: db, embedder: embedder, collection: collection}
	logging.Memory("Store opened: path=%s collection=%s", path, collection)
	return s, nil
}

// embeddingFunc adapts the Embedder for chromem. chromem falls back to
// its OpenAI default when handed nil, so every collection access must
// pass this.
func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Add embeds the documents and appends them to the collection.
func (s *Store) Add(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyText
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		if doc.Content == "" {
			return nil, fmt.Errorf("%w: document %d", ErrEmptyText, i)
		}
		texts[i] = doc.Content
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(docs))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	col, err := s.db.GetOrCreateCollection(s.collection, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", s.collection, err)
	}

	ids := make([]string, len(docs))
	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		if ids[i] == "" {
			ids[i] = uuid.NewString()
		}
		chromemDocs[i] = chromem.Document{
			ID:        ids[i],
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: embeddings[i],
		}
	}

	// Concurrency 1: embeddings are already computed.
	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}

	logging.MemoryDebug("Added %d documents to %s", len(docs), s.collection)
	return ids, nil
}

// Search returns the top-k candidates by embedding similarity. An
// empty or missing collection yields no candidates, not an error.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	if query == "" {
		return nil, ErrEmptyText
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	col := s.db.GetCollection(s.collection, s.embeddingFunc())
	if col == nil {
		return nil, nil
	}

	// chromem requires k <= document count.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", s.collection, err)
	}

	candidates := make([]Candidate, len(results))
	for i, r := range results {
		candidates[i] = Candidate{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    r.Similarity,
		}
	}

	logging.MemoryDebug("Search %q -> %d candidates", query, len(candidates))
	return candidates, nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	col := s.db.GetCollection(s.collection, s.embeddingFunc())
	if col == nil {
		return 0
	}
	return col.Count()
}

// Close releases the embedder. chromem persists continuously and needs
// no explicit close.
func (s *Store) Close() error {
	return s.embedder.Close()
}
