// Package builtin provides the capabilities compiled into the agent:
// memory retrieval and writes, web search, file writes, and sandboxed
// script and shell execution. Each capability returns a JSON payload
// string; failures are encoded in the payload rather than returned as
// Go errors so the model can read and react to them.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/memory"
	"github.com/MrSnowNB/project-alice/internal/sandbox"
)

// MemoryService is the slice of the memory layer the built-ins use.
type MemoryService interface {
	Retrieve(ctx context.Context, query string) (*memory.RetrieveResult, error)
	Remember(ctx context.Context, text string, metadata map[string]string) error
}

// Deps carries the services the built-in capabilities close over.
type Deps struct {
	// Memory backs retrieve_from_memory and add_to_memory. Optional;
	// the memory capabilities report an error payload when absent.
	Memory MemoryService

	// Runner executes scripts and shell commands.
	Runner sandbox.Runner

	// Workspace confines file writes and script paths.
	Workspace string

	// Searcher performs web searches. Nil gets the default.
	Searcher *WebSearcher
}

// Register adds every built-in capability to the registry.
func Register(reg *capability.Registry, deps Deps) error {
	searcher := deps.Searcher
	if searcher == nil {
		searcher = NewWebSearcher()
	}

	caps := []*capability.Capability{
		retrieveFromMemory(deps.Memory),
		addToMemory(deps.Memory),
		searchTheWeb(searcher),
		writeFile(deps.Workspace),
		executeScript(deps.Runner, deps.Workspace),
		runShellCommand(deps.Runner),
		requestHumanAssistance(),
	}

	for _, c := range caps {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register builtin %s: %w", c.Name, err)
		}
	}
	return nil
}

// ===========================================================================
// PAYLOAD SHAPES
// ===========================================================================

// Payloads marshal through structs so field order stays stable in the
// transcript the model reads.

type contextPayload struct {
	RelevantContext string `json:"relevant_context"`
}

type contentPayload struct {
	RetrievedContent string `json:"retrieved_content"`
}

type resultPayload struct {
	Result string `json:"result"`
}

type statusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type writeFilePayload struct {
	Status   string `json:"status"`
	FilePath string `json:"file_path"`
}

type runPayload struct {
	Status     string `json:"status"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code,omitempty"`
}

type execErrorPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type notFoundPayload struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type errPayload struct {
	Error string `json:"error"`
}

func payload(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to encode capability result"}`
	}
	return string(b)
}

func errorPayload(format string, args ...any) string {
	return payload(errPayload{Error: fmt.Sprintf(format, args...)})
}

func executionError(format string, args ...any) string {
	return payload(execErrorPayload{Status: "execution_error", Message: fmt.Sprintf(format, args...)})
}

// stringArg extracts a string argument, tolerating absent or
// mistyped values.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// stringSliceArg extracts a list-of-strings argument; non-string
// elements are stringified.
func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out
}
