// Package perception provides the LLM transport layer. It speaks the
// OpenAI chat-completions protocol against a local endpoint (LM
// Studio, llama.cpp server, vLLM) and converts between wire messages
// and the shared conversation types.
//
// The client deliberately does not retry. A failed round trip is
// surfaced to the agent loop, which records it as a failed turn and
// routes through error recovery instead of masking the outage.
package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnowNB/project-alice/internal/config"
	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/types"
)

// Config holds client settings.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns defaults for a local LM Studio endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:1234/v1",
		Model:   "local-model",
		Timeout: 2 * time.Minute,
	}
}

// Client implements types.LLMClient against an OpenAI-compatible API.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// New creates a client with custom settings. Zero-value fields fall
// back to DefaultConfig.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// NewFromConfig creates a client from the loaded configuration.
func NewFromConfig(cfg *config.Config) *Client {
	return New(Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLM.Timeout(),
	})
}

// Complete sends a single user prompt and returns the completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with an optional system message.
// An empty system prompt sends the user message alone.
func (c *Client) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var messages []ChatMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: userPrompt})

	startTime := time.Now()
	logging.PerceptionDebug("[LLM] Complete: model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	resp, err := c.do(ctx, ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
	})
	if err != nil {
		logging.PerceptionError("[LLM] Complete: %v", err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		logging.PerceptionError("[LLM] Complete: no completion returned")
		return "", fmt.Errorf("no completion returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	logging.Perception("[LLM] Complete: completed in %v response_len=%d", time.Since(startTime), len(text))
	return text, nil
}

// CompleteWithTools sends the conversation history with the available
// capability schemas and returns the model's reply, which may carry
// tool calls. Tool-call arguments that fail to parse as JSON objects
// degrade to an empty argument map rather than failing the turn.
func (c *Client) CompleteWithTools(ctx context.Context, messages []types.Message, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	startTime := time.Now()
	logging.PerceptionDebug("[LLM] CompleteWithTools: model=%s messages=%d tools=%d", c.model, len(messages), len(tools))

	resp, err := c.do(ctx, ChatRequest{
		Model:       c.model,
		Messages:    mapMessages(messages),
		Tools:       mapToolDefinitions(tools),
		Temperature: 0,
	})
	if err != nil {
		logging.PerceptionError("[LLM] CompleteWithTools: %v", err)
		return nil, err
	}

	if len(resp.Choices) == 0 {
		logging.PerceptionError("[LLM] CompleteWithTools: no completion returned")
		return nil, fmt.Errorf("no completion returned")
	}

	choice := resp.Choices[0]
	out := &types.LLMToolResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		ToolCalls:  mapToolCalls(choice.Message.ToolCalls),
		StopReason: choice.FinishReason,
	}
	if resp.Usage != nil {
		out.Usage = types.UsageMetadata{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}

	logging.Perception("[LLM] CompleteWithTools: completed in %v tool_calls=%d response_len=%d",
		time.Since(startTime), len(out.ToolCalls), len(out.Text))
	return out, nil
}

// do performs a single chat-completions round trip. No retries.
func (c *Client) do(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	return &chatResp, nil
}

// SetModel changes the model used for completions.
func (c *Client) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *Client) GetModel() string {
	return c.model
}
