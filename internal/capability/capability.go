// Package capability provides the agent's tool surface: a thread-safe
// registry of invokable capabilities, a SQLite-backed catalog of
// synthesized tools, a sandboxed interpreter for running synthesized
// Go source, and a filesystem watcher that hot-registers tool files as
// they appear.
//
// Capabilities come from two sources. Built-ins are constructed in Go
// at startup. Synthesized capabilities are Go source files under the
// workspace tool directory written by the agent itself; each file
// carries a YAML metadata header and a RunTool entry point, and is
// interpreted rather than compiled so a bad tool cannot take down the
// process.
//
// Architecture:
//
//	Goal → Registry.Definitions() → LLM tool call → Registry.Execute()
//	tool file → Loader → Interpreter probe → Registry + Catalog
package capability

import (
	"context"
	"time"

	"github.com/MrSnowNB/project-alice/internal/types"
)

// Source classifies where a capability came from.
type Source string

const (
	// SourceBuiltin marks capabilities compiled into the binary.
	SourceBuiltin Source = "builtin"

	// SourceSynthesized marks capabilities loaded from tool files.
	SourceSynthesized Source = "synthesized"
)

// Property describes a single parameter for the JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Schema defines the JSON schema for capability arguments.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for capability execution.
// Returns the result payload and any error.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Capability defines an invokable tool.
type Capability struct {
	// Name is the unique identifier the model calls.
	Name string

	// Description explains what the capability does. Sent to the
	// model with the schema.
	Description string

	// Source classifies the capability (builtin or synthesized).
	Source Source

	// Execute runs the capability with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema Schema

	// Path is the source file for synthesized capabilities.
	Path string

	// Checksum is the sha256 of the source file for synthesized
	// capabilities.
	Checksum string

	// RegisteredAt is when the capability entered the registry.
	RegisteredAt time.Time

	// LastUsed is the most recent successful resolution for
	// execution. Drives idle pruning of synthesized capabilities.
	LastUsed time.Time
}

// Validate checks if the capability definition is valid.
func (c *Capability) Validate() error {
	if c.Name == "" {
		return ErrCapabilityNameEmpty
	}
	if c.Execute == nil {
		return ErrCapabilityExecuteNil
	}
	return nil
}

// IsBuiltin reports whether the capability is compiled in.
func (c *Capability) IsBuiltin() bool {
	return c.Source == SourceBuiltin
}

// Definition converts the capability to the wire tool definition.
func (c *Capability) Definition() types.ToolDefinition {
	props := make(map[string]any, len(c.Schema.Properties))
	for name, p := range c.Schema.Properties {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[name] = prop
	}

	required := c.Schema.Required
	if required == nil {
		required = []string{}
	}

	return types.ToolDefinition{
		Name:        c.Name,
		Description: c.Description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// Result wraps the outcome of a capability execution.
type Result struct {
	// Capability identifies which capability was executed.
	Capability string

	// Output is the string payload from the capability.
	Output string

	// Err is set if the execution failed.
	Err error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the capability executed without error.
func (r *Result) IsSuccess() bool {
	return r.Err == nil
}
