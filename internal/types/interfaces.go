package types

import (
	"context"
)

// LLMClient defines the interface for reasoning-provider interactions.
type LLMClient interface {
	// Complete sends a single-prompt completion without capability schemas.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a system+user completion without capability schemas.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// CompleteWithTools sends an ordered message history with capability
	// definitions attached and returns the response with any tool calls.
	CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (*LLMToolResponse, error)
}

// ToolDefinition describes a capability the reasoning engine may invoke.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall represents a capability invocation requested by the reasoning
// engine, as parsed off the wire.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// UsageMetadata captures token usage metrics from the provider.
type UsageMetadata struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// LLMToolResponse contains both the text response and any tool calls.
type LLMToolResponse struct {
	Text       string        `json:"text"`
	ToolCalls  []ToolCall    `json:"tool_calls"`
	StopReason string        `json:"stop_reason"` // "end_turn", "tool_use", etc.
	Usage      UsageMetadata `json:"usage"`
}

// Invocation converts the first tool call into a CapabilityInvocation, or
// returns false when the response carries none. The state machine admits at
// most one pending invocation per turn; extra calls are ignored.
func (r *LLMToolResponse) Invocation() (CapabilityInvocation, bool) {
	if r == nil || len(r.ToolCalls) == 0 {
		return CapabilityInvocation{}, false
	}
	tc := r.ToolCalls[0]
	args := tc.Input
	if args == nil {
		args = map[string]any{}
	}
	return CapabilityInvocation{ID: tc.ID, Name: tc.Name, Args: args}, true
}
