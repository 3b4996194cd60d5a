//go:build !cgo

package memory

import (
	"context"
	"errors"
)

// ErrFastEmbedNotAvailable is returned when the binary was built
// without CGO; the ONNX runtime needs it. Use the ollama engine
// instead.
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available (built without CGO, set embedding.engine to ollama)")

// FastEmbedEmbedder is a stub for non-CGO builds.
type FastEmbedEmbedder struct{}

// NewFastEmbedEmbedder always fails without CGO.
func NewFastEmbedEmbedder(model, cacheDir string) (*FastEmbedEmbedder, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (e *FastEmbedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (e *FastEmbedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (e *FastEmbedEmbedder) Close() error { return nil }
