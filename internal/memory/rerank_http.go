package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MrSnowNB/project-alice/internal/logging"
)

// ===========================================================================
// HTTP CROSS-ENCODER RERANKER
// ===========================================================================

// HTTPReranker calls an external cross-encoder service. Protocol:
//
//	POST {endpoint}
//	{"query": "...", "passages": ["...", ...]}
//	-> 200 {"scores": [0.92, 0.12, ...]}
//
// Scores are positionally aligned with the passages.
type HTTPReranker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPReranker creates a reranker client for the given endpoint.
func NewHTTPReranker(endpoint string, timeout time.Duration) *HTTPReranker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPReranker{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
}

type rerankResponse struct {
	Scores []float32 `json:"scores"`
}

// Rerank sends the candidates to the cross-encoder and sorts them by
// its scores.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Passage, error) {
	if len(candidates) == 0 {
		return []Passage{}, nil
	}
	if topK <= 0 {
		topK = len(candidates)
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Content
	}

	body, err := json.Marshal(rerankRequest{Query: query, Passages: passages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranker returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	if len(result.Scores) != len(candidates) {
		return nil, fmt.Errorf("%w: %d scores for %d passages", ErrScoreMismatch, len(result.Scores), len(candidates))
	}

	scored := make([]Passage, len(candidates))
	for i, c := range candidates {
		scored[i] = Passage{Content: c.Content, Metadata: c.Metadata, Score: result.Scores[i]}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	logging.MemoryDebug("Cross-encoder reranked %d candidates", len(candidates))
	return scored[:topK], nil
}

// Close is a no-op.
func (r *HTTPReranker) Close() error { return nil }
