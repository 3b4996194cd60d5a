// Package memory is the agent's long-term store: a persistent embedded
// vector database with two-stage retrieval. Stage one pulls top-K
// candidates by embedding similarity; stage two reranks each
// (query, candidate) pair with a cross-encoder (or a lexical fallback)
// and keeps the best few.
//
//	query -> Store.Search (top-K) -> Reranker.Rerank -> top-N passages
//
// Writes embed-and-append and serialize under a single writer lock;
// reads run concurrently.
package memory

import (
	"context"
	"errors"
)

// ===========================================================================
// ERRORS
// ===========================================================================

var (
	// ErrEmptyText rejects blank writes and queries.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrScoreMismatch reports a reranker that returned a score count
	// different from the passage count.
	ErrScoreMismatch = errors.New("reranker returned mismatched score count")
)

// ===========================================================================
// TYPES
// ===========================================================================

// Document is a unit of stored memory.
type Document struct {
	// ID uniquely identifies the document. Generated when empty.
	ID string

	// Content is the stored text.
	Content string

	// Metadata carries provenance (source path, chunk index, added-at).
	Metadata map[string]string
}

// Candidate is a stage-one similarity hit.
type Candidate struct {
	ID       string
	Content  string
	Metadata map[string]string

	// Score is the similarity from the vector search, higher is closer.
	Score float32
}

// Passage is a stage-two result: a candidate with its reranker score.
type Passage struct {
	Content  string
	Metadata map[string]string

	// Score is the reranker's relevance score, higher is better.
	Score float32
}

// ===========================================================================
// INTERFACES
// ===========================================================================

// Embedder turns text into vectors. Queries and documents may embed
// differently (BGE-style models prefix them), so both paths exist.
type Embedder interface {
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of stored texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any held resources.
	Close() error
}

// Reranker orders candidates by relevance to the query and keeps the
// top K.
type Reranker interface {
	// Rerank scores each (query, candidate) pair and returns the best
	// topK passages sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Passage, error)

	// Close releases any held resources.
	Close() error
}
