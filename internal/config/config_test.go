package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, workspace, content string) {
	t.Helper()
	dir := filepath.Join(workspace, StateDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	ws := t.TempDir()

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:1234/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "local-model", cfg.LLM.Model)
	assert.Equal(t, 120, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, "ollama", cfg.Embedding.Engine)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "lexical", cfg.Rerank.Engine)
	assert.Equal(t, 10, cfg.Memory.TopK)
	assert.Equal(t, 3, cfg.Memory.RerankTop)
	assert.Equal(t, 30, cfg.Tools.PruneDays)
	assert.True(t, cfg.Tools.WatchEnabled())
	assert.Equal(t, "process", cfg.Sandbox.Runner)
	assert.Equal(t, 60, cfg.Sandbox.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Agent.MaxReplans)
	assert.Equal(t, 30, cfg.Agent.CompactThreshold)
	assert.Equal(t, 10, cfg.Agent.CompactWindow)
	assert.Equal(t, []string{"write_file", "execute_script", "run_shell_command"}, cfg.Agent.Dangerous)
	assert.Equal(t, "127.0.0.1:8765", cfg.Service.Addr)
	assert.Equal(t, ws, cfg.Workspace)
}

func TestLoadFromFile(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `{
		"llm": {"base_url": "http://localhost:8080/v1", "model": "qwen2.5", "timeout_seconds": 30},
		"memory": {"top_k": 20, "rerank_top": 5},
		"tools": {"watch": false},
		"agent": {"max_replans": 5}
	}`)

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "qwen2.5", cfg.LLM.Model)
	assert.Equal(t, 30, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, 20, cfg.Memory.TopK)
	assert.Equal(t, 5, cfg.Memory.RerankTop)
	assert.False(t, cfg.Tools.WatchEnabled())
	assert.Equal(t, 5, cfg.Agent.MaxReplans)

	// Unset fields still get defaults.
	assert.Equal(t, "ollama", cfg.Embedding.Engine)
	assert.Equal(t, 30, cfg.Tools.PruneDays)
}

func TestEnvOverridesFile(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `{"llm": {"model": "from-file"}, "memory": {"top_k": 20}}`)

	t.Setenv("ALICE_LLM_MODEL", "from-env")
	t.Setenv("ALICE_MEMORY_TOP_K", "25")
	t.Setenv("ALICE_SANDBOX_TIMEOUT_SECONDS", "5")

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, 25, cfg.Memory.TopK)
	assert.Equal(t, 5, cfg.Sandbox.TimeoutSeconds)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "http rerank without endpoint",
			content: `{"rerank": {"engine": "http"}}`,
			wantErr: "rerank.endpoint",
		},
		{
			name:    "unknown sandbox runner",
			content: `{"sandbox": {"runner": "chroot"}}`,
			wantErr: "sandbox.runner",
		},
		{
			name:    "top_k below rerank_top",
			content: `{"memory": {"top_k": 2}}`,
			wantErr: "memory.top_k",
		},
		{
			name:    "negative replan budget",
			content: `{"agent": {"max_replans": -1}}`,
			wantErr: "agent.max_replans",
		},
		{
			name:    "threshold inside window",
			content: `{"agent": {"compact_threshold": 5, "compact_window": 10}}`,
			wantErr: "agent.compact_threshold",
		},
		{
			name:    "unknown embedding engine",
			content: `{"embedding": {"engine": "openai"}}`,
			wantErr: "embedding.engine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := t.TempDir()
			writeConfig(t, ws, tt.content)

			_, err := Load(ws)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnsureDefaultCreatesFile(t *testing.T) {
	ws := t.TempDir()

	cfg, err := EnsureDefault(ws)
	require.NoError(t, err)
	assert.Equal(t, "local-model", cfg.LLM.Model)

	_, err = os.Stat(FilePath(ws))
	require.NoError(t, err, "config file should exist after EnsureDefault")

	// Second call loads the existing file rather than rewriting it.
	again, err := EnsureDefault(ws)
	require.NoError(t, err)
	assert.Equal(t, cfg.LLM.BaseURL, again.LLM.BaseURL)
}

func TestPathResolution(t *testing.T) {
	ws := t.TempDir()
	cfg := Default(ws)

	assert.Equal(t, filepath.Join(ws, StateDirName, "tools"), cfg.ToolsDir())
	assert.Equal(t, filepath.Join(ws, StateDirName, "memory"), cfg.MemoryDir())
	assert.Equal(t, filepath.Join(ws, StateDirName, "catalog.db"), cfg.CatalogPath())

	abs := filepath.Join(t.TempDir(), "elsewhere")
	cfg.Tools.Dir = abs
	assert.Equal(t, abs, cfg.ToolsDir())
}

func TestIsDangerous(t *testing.T) {
	cfg := Default(t.TempDir())

	assert.True(t, cfg.Agent.IsDangerous("write_file"))
	assert.True(t, cfg.Agent.IsDangerous("RUN_SHELL_COMMAND"))
	assert.False(t, cfg.Agent.IsDangerous("retrieve_from_memory"))
}
