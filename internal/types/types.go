// Package types provides shared type definitions used across alice packages.
// This package exists to break import cycles between agent, perception, and
// capability. Types in this package should be foundational data structures
// with no complex dependencies.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MESSAGE TYPES - Session Conversation Log
// =============================================================================

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ResultStatus is the success/failure discriminator on a capability result.
type ResultStatus string

const (
	ResultOK    ResultStatus = "ok"
	ResultError ResultStatus = "error"
)

// CapabilityInvocation is a request to run one capability with concrete
// arguments, tied to a correlation id supplied by the reasoning provider
// (or generated locally when the provider omits one).
type CapabilityInvocation struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is one entry in a session's conversation log. It is polymorphic
// over three variants, discriminated by Role:
//
//   - RoleUser: operator-authored or injected guidance text.
//   - RoleAssistant: a reasoning-engine turn, optionally carrying exactly one
//     pending CapabilityInvocation.
//   - RoleTool: a CapabilityResult answering the invocation identified by
//     CorrelationID; always appended immediately after the assistant turn
//     whose invocation it answers.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Assistant variant: the zero-or-one pending invocation.
	Invocation *CapabilityInvocation `json:"invocation,omitempty"`

	// Tool variant: which invocation this result answers, which capability
	// produced it, and whether the capability itself reported failure.
	CorrelationID string       `json:"correlation_id,omitempty"`
	Capability    string       `json:"capability,omitempty"`
	Status        ResultStatus `json:"status,omitempty"`
}

// NewUserMessage builds a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage builds an assistant-role message without an invocation.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewAssistantInvocation builds an assistant-role message carrying a pending
// capability invocation.
func NewAssistantInvocation(content string, inv CapabilityInvocation) Message {
	return Message{Role: RoleAssistant, Content: content, Invocation: &inv}
}

// NewCapabilityResult builds a tool-role message answering inv.
func NewCapabilityResult(inv CapabilityInvocation, status ResultStatus, payload string) Message {
	return Message{
		Role:          RoleTool,
		Content:       payload,
		CorrelationID: inv.ID,
		Capability:    inv.Name,
		Status:        status,
	}
}

// HasInvocation reports whether this is an assistant turn with a pending
// capability invocation.
func (m Message) HasInvocation() bool {
	return m.Role == RoleAssistant && m.Invocation != nil && m.Invocation.Name != ""
}

// IsResult reports whether this is a capability result turn.
func (m Message) IsResult() bool {
	return m.Role == RoleTool
}

// FormatForPrompt renders one message the way prompts present history:
// "Human: …", "AI: …", "AI (Tool Call): name({args})", "Tool (name): …".
func (m Message) FormatForPrompt() string {
	switch m.Role {
	case RoleUser:
		return "Human: " + m.Content
	case RoleAssistant:
		if m.HasInvocation() {
			return fmt.Sprintf("AI (Tool Call): %s(%s)", m.Invocation.Name, formatArgs(m.Invocation.Args))
		}
		return "AI: " + m.Content
	case RoleTool:
		return fmt.Sprintf("Tool (%s): %s", m.Capability, m.Content)
	}
	return m.Content
}

// FormatHistory renders an ordered message log for inclusion in a prompt.
func FormatHistory(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.FormatForPrompt())
	}
	return strings.Join(lines, "\n")
}

// formatArgs renders an argument map with stable key order so prompts and
// step summaries are deterministic.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, args[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FormatArgs is the exported form used by step summaries.
func FormatArgs(args map[string]any) string {
	return formatArgs(args)
}
