package config

import "time"

// LLMConfig configures the reasoning model endpoint.
//
// The default target is an OpenAI-compatible local server (LM Studio,
// llama.cpp server, vLLM). Any endpoint that speaks the
// /v1/chat/completions protocol with tool calling works.
type LLMConfig struct {
	// BaseURL of the OpenAI-compatible API, without the
	// /chat/completions suffix.
	BaseURL string `json:"base_url,omitempty" koanf:"base_url"`

	// Model identifier passed through to the endpoint. Local servers
	// typically ignore it.
	Model string `json:"model,omitempty" koanf:"model"`

	// APIKey is sent as a bearer token when set. Local servers do not
	// require one.
	APIKey string `json:"api_key,omitempty" koanf:"api_key"`

	// TimeoutSeconds bounds a single completion round trip.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" koanf:"timeout_seconds"`
}

// Timeout returns the completion timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EmbeddingConfig configures the embedding engine for vector memory.
//
// Engines:
//   - "ollama":    HTTP calls to a local Ollama server (default)
//   - "fastembed": in-process ONNX embeddings (requires cgo build)
type EmbeddingConfig struct {
	// Engine selection ("ollama" or "fastembed").
	Engine string `json:"engine,omitempty" koanf:"engine"`

	// Endpoint of the Ollama server. Ignored by fastembed.
	Endpoint string `json:"endpoint,omitempty" koanf:"endpoint"`

	// Model name for the selected engine.
	Model string `json:"model,omitempty" koanf:"model"`

	// CacheDir holds downloaded fastembed model files.
	CacheDir string `json:"cache_dir,omitempty" koanf:"cache_dir"`
}

// RerankConfig configures second-stage retrieval scoring.
//
// Engines:
//   - "lexical": in-process term-overlap scoring (default)
//   - "http":    POST to an external cross-encoder endpoint
type RerankConfig struct {
	// Engine selection ("lexical" or "http").
	Engine string `json:"engine,omitempty" koanf:"engine"`

	// Endpoint of the cross-encoder service. Required for "http".
	Endpoint string `json:"endpoint,omitempty" koanf:"endpoint"`

	// TimeoutSeconds bounds a single rerank round trip.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" koanf:"timeout_seconds"`
}

// Timeout returns the rerank timeout as a duration.
func (c RerankConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
