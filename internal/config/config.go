// Package config loads and validates alice configuration from
// .alice/config.json with ALICE_* environment variable overrides.
// This is the single source of truth for configuration across the
// agent loop, the capability registry, memory, and the sandbox.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// StateDirName is the per-workspace state directory.
	StateDirName = ".alice"

	// configFileName is the config file inside the state directory.
	configFileName = "config.json"
)

// Config holds ALL alice configuration from .alice/config.json.
type Config struct {
	// =========================================================================
	// LLM PROVIDER CONFIGURATION
	// =========================================================================

	// LLM endpoint settings for the reasoning model.
	LLM LLMConfig `json:"llm,omitempty" koanf:"llm"`

	// =========================================================================
	// MEMORY & EMBEDDING CONFIGURATION
	// =========================================================================

	// Embedding engine configuration for semantic vector search.
	Embedding EmbeddingConfig `json:"embedding,omitempty" koanf:"embedding"`

	// Rerank engine configuration for second-stage retrieval scoring.
	Rerank RerankConfig `json:"rerank,omitempty" koanf:"rerank"`

	// Vector memory store settings.
	Memory MemoryConfig `json:"memory,omitempty" koanf:"memory"`

	// =========================================================================
	// CAPABILITY & EXECUTION CONFIGURATION
	// =========================================================================

	// Synthesized tool catalog settings.
	Tools ToolsConfig `json:"tools,omitempty" koanf:"tools"`

	// Sandbox settings for script and shell execution.
	Sandbox SandboxConfig `json:"sandbox,omitempty" koanf:"sandbox"`

	// =========================================================================
	// AGENT LOOP CONFIGURATION
	// =========================================================================

	// Agent loop settings (replan budget, history compaction, gating).
	Agent AgentConfig `json:"agent,omitempty" koanf:"agent"`

	// =========================================================================
	// SERVICE & LOGGING CONFIGURATION
	// =========================================================================

	// Memory service daemon settings.
	Service ServiceConfig `json:"service,omitempty" koanf:"service"`

	// Logging configuration. The logging package reads the same section
	// directly from config.json so it can initialize before this package.
	Logging LoggingConfig `json:"logging,omitempty" koanf:"logging"`

	// Workspace is the resolved workspace root. Set by Load, never
	// serialized.
	Workspace string `json:"-" koanf:"-"`
}

// StateDir returns the workspace state directory (.alice).
func (c *Config) StateDir() string {
	return filepath.Join(c.Workspace, StateDirName)
}

// ToolsDir returns the resolved synthesized-tool directory.
func (c *Config) ToolsDir() string {
	return c.resolve(c.Tools.Dir)
}

// MemoryDir returns the resolved vector store directory.
func (c *Config) MemoryDir() string {
	return c.resolve(c.Memory.Path)
}

// CatalogPath returns the SQLite capability catalog path.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.StateDir(), "catalog.db")
}

// EmbedCacheDir returns the resolved local embedding model cache.
func (c *Config) EmbedCacheDir() string {
	return c.resolve(c.Embedding.CacheDir)
}

// resolve joins workspace-relative paths; absolute paths pass through.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Workspace, p)
}

// FilePath returns the config file path for a workspace.
func FilePath(workspace string) string {
	return filepath.Join(workspace, StateDirName, configFileName)
}

// FindWorkspaceRoot attempts to find the project root by looking for
// .alice or go.mod. If neither is found, returns the current working
// directory.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, StateDirName)); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return originalDir, nil
}

// Save writes the configuration to .alice/config.json in the
// configured workspace.
func (c *Config) Save() error {
	path := FilePath(c.Workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// EnsureDefault writes a default config file if none exists yet, then
// returns the loaded configuration. Used by CLI startup so a fresh
// workspace works without manual setup.
func EnsureDefault(workspace string) (*Config, error) {
	path := FilePath(workspace)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default(workspace)
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}
	return Load(workspace)
}

// Default returns the default configuration for a workspace.
func Default(workspace string) *Config {
	cfg := &Config{Workspace: workspace}
	applyDefaults(cfg)
	return cfg
}
