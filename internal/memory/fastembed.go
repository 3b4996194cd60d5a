//go:build cgo

package memory

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// ===========================================================================
// FASTEMBED EMBEDDER (in-process ONNX, requires CGO)
// ===========================================================================

// fastembedModels maps config model names to fastembed constants.
var fastembedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// FastEmbedEmbedder runs an ONNX embedding model in-process. The first
// use downloads the model into the cache directory.
type FastEmbedEmbedder struct {
	model *fastembed.FlagEmbedding
	mu    sync.RWMutex
}

// NewFastEmbedEmbedder initializes the model, downloading it into
// cacheDir when absent.
func NewFastEmbedEmbedder(model, cacheDir string) (*FastEmbedEmbedder, error) {
	m, ok := fastembedModels[model]
	if !ok {
		return nil, fmt.Errorf("unsupported fastembed model %q", model)
	}

	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                m,
		CacheDir:             cacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}
	return &FastEmbedEmbedder{model: flagEmbed}, nil
}

// EmbedQuery embeds a query with the model's "query: " prefix.
func (e *FastEmbedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model.QueryEmbed(text)
}

// EmbedDocuments embeds stored texts with the "passage: " prefix.
func (e *FastEmbedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model.PassageEmbed(texts, 256)
}

// Close destroys the ONNX session.
func (e *FastEmbedEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		return e.model.Destroy()
	}
	return nil
}
