package perception

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/types"
)

// =============================================================================
// WIRE TYPES - OpenAI chat-completions protocol
// =============================================================================

// ChatRequest is the /chat/completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Tools       []ChatTool    `json:"tools,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatMessage is one conversation turn on the wire.
type ChatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCalls  []ChatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// ChatTool advertises a callable function to the model.
type ChatTool struct {
	Type     string          `json:"type"`
	Function ChatFunctionDef `json:"function"`
}

// ChatFunctionDef carries a function name, description, and JSON
// schema for its parameters.
type ChatFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ChatToolCall is a function invocation requested by the model.
type ChatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ChatFunctionCall `json:"function"`
}

// ChatFunctionCall holds the function name and raw JSON arguments.
type ChatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the /chat/completions response body.
type ChatResponse struct {
	ID      string       `json:"id"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`
	Error   *APIError    `json:"error,omitempty"`
}

// ChatChoice is one candidate completion.
type ChatChoice struct {
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage reports token accounting.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError is an in-body error from the endpoint.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

// mapMessages converts conversation history to wire messages. An
// assistant turn carrying an invocation becomes an assistant message
// with tool_calls; a capability result becomes a tool message keyed by
// its correlation ID.
func mapMessages(messages []types.Message) []ChatMessage {
	result := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		wm := ChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		if m.HasInvocation() {
			wm.ToolCalls = []ChatToolCall{{
				ID:   m.Invocation.ID,
				Type: "function",
				Function: ChatFunctionCall{
					Name:      m.Invocation.Name,
					Arguments: marshalArguments(m.Invocation.Args),
				},
			}}
		}
		if m.IsResult() {
			wm.ToolCallID = m.CorrelationID
			wm.Name = m.Capability
		}
		result = append(result, wm)
	}
	return result
}

// mapToolDefinitions converts capability schemas to the wire format.
func mapToolDefinitions(tools []types.ToolDefinition) []ChatTool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]ChatTool, len(tools))
	for i, t := range tools {
		result[i] = ChatTool{
			Type: "function",
			Function: ChatFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		}
	}
	return result
}

// mapToolCalls converts wire tool calls to internal calls. Missing
// call IDs are filled so results can always be correlated.
func mapToolCalls(calls []ChatToolCall) []types.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]types.ToolCall, 0, len(calls))
	for _, c := range calls {
		if c.Type != "" && c.Type != "function" {
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		result = append(result, types.ToolCall{
			ID:    id,
			Name:  c.Function.Name,
			Input: parseArguments(c.Function.Name, c.Function.Arguments),
		})
	}
	return result
}

// parseArguments decodes raw JSON arguments. Local models emit
// malformed argument payloads often enough that a parse failure
// degrades to an empty map instead of failing the turn.
func parseArguments(tool, raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		logging.PerceptionWarn("[LLM] malformed arguments for tool %s, using empty args: %.120s", tool, raw)
		return map[string]any{}
	}
	return args
}

// marshalArguments renders an argument map as the wire's JSON string.
func marshalArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}
