package agent

import (
	"context"
	"testing"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/types"
)

// --- MockLLMClient ---

// MockLLMClient implements types.LLMClient with pluggable behavior.
// Tests script Decide turns through CompleteWithToolsFunc and
// Plan/Replan/Report through CompleteFunc.
type MockLLMClient struct {
	CompleteFunc           func(ctx context.Context, prompt string) (string, error)
	CompleteWithSystemFunc func(ctx context.Context, sys, user string) (string, error)
	CompleteWithToolsFunc  func(ctx context.Context, messages []types.Message, tools []types.ToolDefinition) (*types.LLMToolResponse, error)

	// Captured calls for assertions.
	CompletePrompts []string
	ToolRequests    [][]types.Message
	ToolDefs        [][]types.ToolDefinition
}

func (m *MockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.CompletePrompts = append(m.CompletePrompts, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "", nil
}

func (m *MockLLMClient) CompleteWithSystem(ctx context.Context, sys, user string) (string, error) {
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, sys, user)
	}
	return "", nil
}

func (m *MockLLMClient) CompleteWithTools(ctx context.Context, messages []types.Message, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	snapshot := make([]types.Message, len(messages))
	copy(snapshot, messages)
	m.ToolRequests = append(m.ToolRequests, snapshot)
	m.ToolDefs = append(m.ToolDefs, tools)
	if m.CompleteWithToolsFunc != nil {
		return m.CompleteWithToolsFunc(ctx, messages, tools)
	}
	return &types.LLMToolResponse{Text: "default response"}, nil
}

// --- MockOperator ---

type MockOperator struct {
	ApproveFunc func(inv types.CapabilityInvocation) bool
	AssistFunc  func(request string) string
	SteerFunc   func(status BreakerStatus) (string, bool)
}

func (m *MockOperator) Approve(inv types.CapabilityInvocation) bool {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(inv)
	}
	return true
}

func (m *MockOperator) Assist(request string) string {
	if m.AssistFunc != nil {
		return m.AssistFunc(request)
	}
	return ""
}

func (m *MockOperator) Steer(status BreakerStatus) (string, bool) {
	if m.SteerFunc != nil {
		return m.SteerFunc(status)
	}
	return "", false
}

// --- Helpers ---

// toolCallResponse builds a Decide reply that invokes one capability.
func toolCallResponse(id, name string, args map[string]any) *types.LLMToolResponse {
	return &types.LLMToolResponse{
		ToolCalls:  []types.ToolCall{{ID: id, Name: name, Input: args}},
		StopReason: "tool_use",
	}
}

// textResponse builds a Decide reply carrying a final answer.
func textResponse(text string) *types.LLMToolResponse {
	return &types.LLMToolResponse{Text: text, StopReason: "end_turn"}
}

// scriptedDecides pops queued Decide replies in order and fails the
// test if the loop asks for more than were scripted.
func scriptedDecides(t *testing.T, turns ...*types.LLMToolResponse) func(ctx context.Context, messages []types.Message, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	t.Helper()
	queue := turns
	return func(context.Context, []types.Message, []types.ToolDefinition) (*types.LLMToolResponse, error) {
		if len(queue) == 0 {
			t.Fatal("decide called more times than scripted")
		}
		next := queue[0]
		queue = queue[1:]
		return next, nil
	}
}

// stubCapability registers a fixed-payload capability. The returned
// pointer lets tests observe execution through closure state instead.
func stubCapability(name, payload string) *capability.Capability {
	return &capability.Capability{
		Name:        name,
		Description: "test capability",
		Source:      capability.SourceBuiltin,
		Execute: func(context.Context, map[string]any) (string, error) {
			return payload, nil
		},
	}
}

func newTestRegistry(t *testing.T, caps ...*capability.Capability) *capability.Registry {
	t.Helper()
	reg := capability.NewRegistry()
	for _, c := range caps {
		if err := reg.Register(c); err != nil {
			t.Fatalf("register %s: %v", c.Name, err)
		}
	}
	return reg
}
