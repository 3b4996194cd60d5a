package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix selects which environment variables override config.
	envPrefix = "ALICE_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load reads configuration for a workspace.
//
// Precedence (highest to lowest):
//  1. Environment variables (ALICE_LLM_BASE_URL, ALICE_AGENT_MAX_REPLANS, ...)
//  2. .alice/config.json in the workspace
//  3. Hardcoded defaults
//
// Environment variables map to config keys by stripping the ALICE_
// prefix, lowercasing, and splitting section from field on the first
// underscore:
//
//	ALICE_LLM_BASE_URL          -> llm.base_url
//	ALICE_MEMORY_TOP_K          -> memory.top_k
//	ALICE_SANDBOX_TIMEOUT_SECONDS -> sandbox.timeout_seconds
//
// A missing config file is not an error; defaults apply.
func Load(workspace string) (*Config, error) {
	k := koanf.New(".")

	path := FilePath(workspace)
	if info, err := os.Stat(path); err == nil {
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), json.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// ALICE_LLM_BASE_URL -> llm.base_url: section names are single
		// words, so the first underscore splits section from field.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Workspace = workspace
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// LLM defaults target a local OpenAI-compatible server.
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:1234/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "local-model"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}

	// Embedding defaults (Ollama for local processing).
	if cfg.Embedding.Engine == "" {
		cfg.Embedding.Engine = "ollama"
	}
	if cfg.Embedding.Endpoint == "" {
		cfg.Embedding.Endpoint = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Engine {
		case "fastembed":
			cfg.Embedding.Model = "BAAI/bge-small-en-v1.5"
		default:
			cfg.Embedding.Model = "nomic-embed-text"
		}
	}
	if cfg.Embedding.CacheDir == "" {
		cfg.Embedding.CacheDir = StateDirName + "/models"
	}

	// Rerank defaults to in-process lexical scoring.
	if cfg.Rerank.Engine == "" {
		cfg.Rerank.Engine = "lexical"
	}
	if cfg.Rerank.TimeoutSeconds == 0 {
		cfg.Rerank.TimeoutSeconds = 30
	}

	// Memory defaults.
	if cfg.Memory.Path == "" {
		cfg.Memory.Path = StateDirName + "/memory"
	}
	if cfg.Memory.Collection == "" {
		cfg.Memory.Collection = "agent_memory"
	}
	if cfg.Memory.TopK == 0 {
		cfg.Memory.TopK = 10
	}
	if cfg.Memory.RerankTop == 0 {
		cfg.Memory.RerankTop = 3
	}

	// Tool catalog defaults.
	if cfg.Tools.Dir == "" {
		cfg.Tools.Dir = StateDirName + "/tools"
	}
	if cfg.Tools.PruneDays == 0 {
		cfg.Tools.PruneDays = 30
	}

	// Sandbox defaults.
	if cfg.Sandbox.Runner == "" {
		cfg.Sandbox.Runner = "process"
	}
	if cfg.Sandbox.Image == "" {
		cfg.Sandbox.Image = "python:3.11-slim"
	}
	if cfg.Sandbox.CPU == 0 {
		cfg.Sandbox.CPU = 1.0
	}
	if cfg.Sandbox.MemoryMB == 0 {
		cfg.Sandbox.MemoryMB = 512
	}
	if cfg.Sandbox.TimeoutSeconds == 0 {
		cfg.Sandbox.TimeoutSeconds = 60
	}
	if cfg.Sandbox.Network == "" {
		cfg.Sandbox.Network = "none"
	}

	// Agent loop defaults.
	if cfg.Agent.MaxReplans == 0 {
		cfg.Agent.MaxReplans = 3
	}
	if cfg.Agent.CompactThreshold == 0 {
		cfg.Agent.CompactThreshold = 30
	}
	if cfg.Agent.CompactWindow == 0 {
		cfg.Agent.CompactWindow = 10
	}
	if len(cfg.Agent.Dangerous) == 0 {
		cfg.Agent.Dangerous = []string{"write_file", "execute_script", "run_shell_command"}
	}

	// Service defaults.
	if cfg.Service.Addr == "" {
		cfg.Service.Addr = "127.0.0.1:8765"
	}

	// Logging defaults.
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url must not be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if c.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("llm.timeout_seconds must be at least 1, got %d", c.LLM.TimeoutSeconds)
	}

	switch c.Embedding.Engine {
	case "ollama", "fastembed":
	default:
		return fmt.Errorf("embedding.engine must be \"ollama\" or \"fastembed\", got %q", c.Embedding.Engine)
	}

	switch c.Rerank.Engine {
	case "lexical":
	case "http":
		if c.Rerank.Endpoint == "" {
			return fmt.Errorf("rerank.endpoint is required when rerank.engine is \"http\"")
		}
	default:
		return fmt.Errorf("rerank.engine must be \"lexical\" or \"http\", got %q", c.Rerank.Engine)
	}

	if c.Memory.RerankTop < 1 {
		return fmt.Errorf("memory.rerank_top must be at least 1, got %d", c.Memory.RerankTop)
	}
	if c.Memory.TopK < c.Memory.RerankTop {
		return fmt.Errorf("memory.top_k (%d) must not be smaller than memory.rerank_top (%d)", c.Memory.TopK, c.Memory.RerankTop)
	}

	if c.Tools.PruneDays < 0 {
		return fmt.Errorf("tools.prune_days must not be negative, got %d", c.Tools.PruneDays)
	}

	switch c.Sandbox.Runner {
	case "process", "docker":
	default:
		return fmt.Errorf("sandbox.runner must be \"process\" or \"docker\", got %q", c.Sandbox.Runner)
	}
	if c.Sandbox.TimeoutSeconds < 1 {
		return fmt.Errorf("sandbox.timeout_seconds must be at least 1, got %d", c.Sandbox.TimeoutSeconds)
	}

	if c.Agent.MaxReplans < 1 {
		return fmt.Errorf("agent.max_replans must be at least 1, got %d", c.Agent.MaxReplans)
	}
	if c.Agent.CompactThreshold > 0 {
		if c.Agent.CompactWindow < 1 {
			return fmt.Errorf("agent.compact_window must be at least 1, got %d", c.Agent.CompactWindow)
		}
		if c.Agent.CompactThreshold <= c.Agent.CompactWindow {
			return fmt.Errorf("agent.compact_threshold (%d) must exceed agent.compact_window (%d)", c.Agent.CompactThreshold, c.Agent.CompactWindow)
		}
	}

	return nil
}
