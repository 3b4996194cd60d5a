package memory

import (
	"context"
	"sort"
	"strings"
)

// ===========================================================================
// LEXICAL RERANKER
// ===========================================================================

// LexicalReranker is the no-dependency fallback: it blends the vector
// similarity with query-term overlap, half and half. The similarity
// preserves semantic ranking; the overlap boosts passages that name
// the query's terms outright.
type LexicalReranker struct{}

// NewLexicalReranker returns the fallback reranker.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

// Rerank scores candidates by blended similarity and term overlap.
func (r *LexicalReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Passage, error) {
	if len(candidates) == 0 {
		return []Passage{}, nil
	}
	if topK <= 0 {
		topK = len(candidates)
	}

	queryTerms := rerankTokens(query)

	scored := make([]Passage, len(candidates))
	for i, c := range candidates {
		overlap := termOverlap(queryTerms, rerankTokens(c.Content))
		scored[i] = Passage{
			Content:  c.Content,
			Metadata: c.Metadata,
			Score:    0.5*c.Score + 0.5*overlap,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// Close is a no-op.
func (r *LexicalReranker) Close() error { return nil }

// rerankTokens lowercases and splits on non-alphanumerics, dropping
// short tokens and common stopwords.
func rerankTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_')
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 || rerankStopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// termOverlap returns the fraction of unique query terms present in
// the passage, 0.0 to 1.0.
func termOverlap(queryTerms, passageTerms []string) float32 {
	if len(queryTerms) == 0 {
		return 0
	}

	passageSet := make(map[string]bool, len(passageTerms))
	for _, t := range passageTerms {
		passageSet[t] = true
	}

	matched := 0
	counted := make(map[string]bool, len(queryTerms))
	for _, t := range queryTerms {
		if passageSet[t] && !counted[t] {
			matched++
			counted[t] = true
		}
	}
	return float32(matched) / float32(len(queryTerms))
}

var rerankStopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "you": true, "they": true,
	"what": true, "which": true, "who": true, "when": true,
	"where": true, "why": true, "how": true,
}
