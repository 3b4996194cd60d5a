package config

// MemoryConfig configures the vector memory store.
type MemoryConfig struct {
	// Path holds the persisted vector store, workspace-relative unless
	// absolute.
	Path string `json:"path,omitempty" koanf:"path"`

	// Collection name inside the store.
	Collection string `json:"collection,omitempty" koanf:"collection"`

	// TopK is the first-stage similarity candidate count.
	TopK int `json:"top_k,omitempty" koanf:"top_k"`

	// RerankTop is how many candidates survive reranking.
	RerankTop int `json:"rerank_top,omitempty" koanf:"rerank_top"`
}

// ServiceConfig configures the memory service daemon.
type ServiceConfig struct {
	// Addr is the listen address for the HTTP API.
	Addr string `json:"addr,omitempty" koanf:"addr"`
}

// LoggingConfig mirrors the logging section of config.json. The
// logging package parses this section itself during initialization;
// this copy exists so Save round-trips the full file.
type LoggingConfig struct {
	// Debug enables debug-level output for all categories.
	Debug bool `json:"debug,omitempty" koanf:"debug"`

	// Categories toggles individual log categories.
	Categories map[string]bool `json:"categories,omitempty" koanf:"categories"`

	// Level is the minimum severity ("debug", "info", "warn", "error").
	Level string `json:"level,omitempty" koanf:"level"`

	// JSONFormat switches log files to structured JSON lines.
	JSONFormat bool `json:"json_format,omitempty" koanf:"json_format"`
}
