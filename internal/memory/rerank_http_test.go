package memory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPRerankerOrdersByScores(t *testing.T) {
	var gotReq rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float32{0.1, 0.9, 0.5}})
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL, 5*time.Second)
	candidates := []Candidate{
		{Content: "alpha", Metadata: map[string]string{"n": "1"}},
		{Content: "bravo", Metadata: map[string]string{"n": "2"}},
		{Content: "charlie", Metadata: map[string]string{"n": "3"}},
	}

	passages, err := r.Rerank(context.Background(), "which one?", candidates, 2)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	if gotReq.Query != "which one?" {
		t.Errorf("query not forwarded: %q", gotReq.Query)
	}
	if len(gotReq.Passages) != 3 || gotReq.Passages[1] != "bravo" {
		t.Errorf("passages not forwarded: %v", gotReq.Passages)
	}

	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].Content != "bravo" || passages[1].Content != "charlie" {
		t.Errorf("wrong order: %q, %q", passages[0].Content, passages[1].Content)
	}
	if passages[0].Score != 0.9 {
		t.Errorf("score not carried: %v", passages[0].Score)
	}
	if passages[0].Metadata["n"] != "2" {
		t.Errorf("metadata not carried: %v", passages[0].Metadata)
	}
}

func TestHTTPRerankerScoreMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float32{0.5}})
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL, 5*time.Second)
	candidates := []Candidate{{Content: "alpha"}, {Content: "bravo"}}

	_, err := r.Rerank(context.Background(), "q", candidates, 2)
	if !errors.Is(err, ErrScoreMismatch) {
		t.Errorf("expected ErrScoreMismatch, got: %v", err)
	}
}

func TestHTTPRerankerServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL, 5*time.Second)

	_, err := r.Rerank(context.Background(), "q", []Candidate{{Content: "alpha"}}, 1)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestHTTPRerankerSkipsEmptyCandidates(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL, 5*time.Second)

	passages, err := r.Rerank(context.Background(), "q", nil, 3)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("expected no passages, got %d", len(passages))
	}
	if called {
		t.Error("no request should be made for zero candidates")
	}
}
