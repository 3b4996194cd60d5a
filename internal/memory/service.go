package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnowNB/project-alice/internal/config"
	"github.com/MrSnowNB/project-alice/internal/logging"
)

// PassageSeparator joins retrieved passages for the agent's context.
const PassageSeparator = "\n\n---\n\n"

// NoResultsMessage is the canonical empty-retrieval answer.
const NoResultsMessage = "No relevant information found in memory."

// AddSuccessMessage is the canonical successful-write answer.
const AddSuccessMessage = "Information successfully added to memory."

// Service runs the two-stage retrieval protocol over a Store: a wide
// similarity search followed by a rerank that keeps the best few.
type Service struct {
	store     *Store
	reranker  Reranker
	topK      int
	rerankTop int
}

// NewService wires a store and reranker. topK is the stage-one
// candidate count, rerankTop the number of passages kept.
func NewService(store *Store, reranker Reranker, topK, rerankTop int) *Service {
	if topK <= 0 {
		topK = 10
	}
	if rerankTop <= 0 {
		rerankTop = 3
	}
	return &Service{store: store, reranker: reranker, topK: topK, rerankTop: rerankTop}
}

// RetrieveResult is the outcome of a retrieval.
type RetrieveResult struct {
	// Found is false when stage one produced no candidates.
	Found bool

	// Context is the top passages joined with PassageSeparator, best
	// first. Empty when Found is false.
	Context string

	// Passages are the kept passages in rank order.
	Passages []Passage
}

// Retrieve runs similarity search then rerank. An empty store is a
// normal outcome, never an error.
func (s *Service) Retrieve(ctx context.Context, query string) (*RetrieveResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyText
	}

	timer := logging.StartTimer(logging.CategoryMemory, "Two-stage retrieval")
	defer timer.Stop()

	candidates, err := s.store.Search(ctx, query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(candidates) == 0 {
		logging.Memory("Retrieve %q: no candidates", query)
		return &RetrieveResult{Found: false}, nil
	}

	passages, err := s.reranker.Rerank(ctx, query, candidates, s.rerankTop)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Content
	}

	logging.Memory("Retrieve %q: %d candidates -> %d passages", query, len(candidates), len(passages))
	return &RetrieveResult{
		Found:    true,
		Context:  strings.Join(parts, PassageSeparator),
		Passages: passages,
	}, nil
}

// Remember embeds and stores one piece of text.
func (s *Service) Remember(ctx context.Context, text string, metadata map[string]string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	if _, ok := metadata["added_at"]; !ok {
		metadata["added_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := s.store.Add(ctx, []Document{{Content: text, Metadata: metadata}})
	return err
}

// AddDocuments stores a batch, for the indexer.
func (s *Service) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	return s.store.Add(ctx, docs)
}

// Count returns the number of stored documents.
func (s *Service) Count() int { return s.store.Count() }

// Close releases the store and reranker.
func (s *Service) Close() error {
	rerr := s.reranker.Close()
	serr := s.store.Close()
	if rerr != nil {
		return rerr
	}
	return serr
}

// ===========================================================================
// CONFIG WIRING
// ===========================================================================

// NewFromConfig assembles the embedder, store, and reranker the config
// selects.
func NewFromConfig(cfg *config.Config) (*Service, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(cfg.MemoryDir(), cfg.Memory.Collection, embedder)
	if err != nil {
		embedder.Close()
		return nil, err
	}

	reranker, err := newReranker(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return NewService(store, reranker, cfg.Memory.TopK, cfg.Memory.RerankTop), nil
}

func newEmbedder(cfg *config.Config) (Embedder, error) {
	switch cfg.Embedding.Engine {
	case "ollama", "":
		return NewOllamaEmbedder(cfg.Embedding.Endpoint, cfg.Embedding.Model), nil
	case "fastembed":
		return NewFastEmbedEmbedder(cfg.Embedding.Model, cfg.EmbedCacheDir())
	default:
		return nil, fmt.Errorf("unknown embedding engine: %q", cfg.Embedding.Engine)
	}
}

func newReranker(cfg *config.Config) (Reranker, error) {
	switch cfg.Rerank.Engine {
	case "lexical", "":
		return NewLexicalReranker(), nil
	case "http":
		if cfg.Rerank.Endpoint == "" {
			return nil, fmt.Errorf("rerank.endpoint is required for the http engine")
		}
		return NewHTTPReranker(cfg.Rerank.Endpoint, cfg.Rerank.Timeout()), nil
	default:
		return nil, fmt.Errorf("unknown rerank engine: %q", cfg.Rerank.Engine)
	}
}
