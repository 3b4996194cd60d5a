package config

import (
	"strings"
	"time"
)

// AgentConfig configures the agent execution loop.
type AgentConfig struct {
	// MaxReplans is the consecutive replan budget before the circuit
	// breaker aborts the session. Human steering resets the count.
	MaxReplans int `json:"max_replans,omitempty" koanf:"max_replans"`

	// CompactThreshold is the message count that triggers history
	// compaction. Zero disables compaction.
	CompactThreshold int `json:"compact_threshold,omitempty" koanf:"compact_threshold"`

	// CompactWindow is how many recent messages survive compaction
	// verbatim.
	CompactWindow int `json:"compact_window,omitempty" koanf:"compact_window"`

	// Dangerous lists capability names that require operator approval
	// before execution.
	Dangerous []string `json:"dangerous,omitempty" koanf:"dangerous"`
}

// IsDangerous reports whether a capability requires operator approval.
// Matching is case-insensitive.
func (c AgentConfig) IsDangerous(name string) bool {
	for _, d := range c.Dangerous {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// ToolsConfig configures the synthesized capability catalog.
type ToolsConfig struct {
	// Dir holds synthesized tool source files, workspace-relative
	// unless absolute.
	Dir string `json:"dir,omitempty" koanf:"dir"`

	// PruneDays is the idle age after which unused synthesized tools
	// are eligible for pruning. Zero disables pruning. Built-in
	// capabilities are never pruned.
	PruneDays int `json:"prune_days,omitempty" koanf:"prune_days"`

	// Watch enables the filesystem watcher that hot-registers tool
	// files as they appear. Defaults to enabled; nil means unset.
	Watch *bool `json:"watch,omitempty" koanf:"watch"`
}

// WatchEnabled reports whether the tool directory watcher should run.
func (c ToolsConfig) WatchEnabled() bool {
	return c.Watch == nil || *c.Watch
}

// PruneAge returns the prune threshold as a duration.
func (c ToolsConfig) PruneAge() time.Duration {
	return time.Duration(c.PruneDays) * 24 * time.Hour
}

// SandboxConfig configures script and shell execution.
//
// Runners:
//   - "process": direct subprocess with deadline and output caps (default)
//   - "docker":  container execution via the Docker daemon
type SandboxConfig struct {
	// Runner selection ("process" or "docker").
	Runner string `json:"runner,omitempty" koanf:"runner"`

	// Image used by the docker runner.
	Image string `json:"image,omitempty" koanf:"image"`

	// CPU limit in cores for the docker runner.
	CPU float64 `json:"cpu,omitempty" koanf:"cpu"`

	// MemoryMB limit for the docker runner.
	MemoryMB int `json:"memory_mb,omitempty" koanf:"memory_mb"`

	// TimeoutSeconds bounds a single execution.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" koanf:"timeout_seconds"`

	// Network mode for the docker runner ("none" keeps containers
	// offline).
	Network string `json:"network,omitempty" koanf:"network"`
}

// Timeout returns the execution deadline as a duration.
func (c SandboxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
