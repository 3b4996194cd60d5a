package builtin

import (
	"context"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/memory"
)

// retrieveFromMemory searches long-term memory with the two-stage
// retrieval protocol and returns the top passages as one block.
func retrieveFromMemory(svc MemoryService) *capability.Capability {
	return &capability.Capability{
		Name:        "retrieve_from_memory",
		Description: "Searches the agent's long-term memory for information relevant to the query. Use this before searching the web when the information may already be known.",
		Source:      capability.SourceBuiltin,
		Schema: capability.Schema{
			Required: []string{"query"},
			Properties: map[string]capability.Property{
				"query": {Type: "string", Description: "The question or topic to look up in memory."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query := stringArg(args, "query")
			if query == "" {
				return errorPayload("The 'query' argument must be a non-empty string."), nil
			}
			if svc == nil {
				return errorPayload("Memory is not available in this session."), nil
			}

			result, err := svc.Retrieve(ctx, query)
			if err != nil {
				logging.CapabilityWarn("retrieve_from_memory failed: %v", err)
				return errorPayload("An error occurred while retrieving from memory: %v", err), nil
			}
			if !result.Found {
				return payload(resultPayload{Result: memory.NoResultsMessage}), nil
			}
			return payload(contextPayload{RelevantContext: result.Context}), nil
		},
	}
}

// addToMemory persists one piece of text to long-term memory.
func addToMemory(svc MemoryService) *capability.Capability {
	return &capability.Capability{
		Name:        "add_to_memory",
		Description: "Adds a piece of text to the agent's long-term memory. Use this to remember important facts, user preferences, or successful solutions.",
		Source:      capability.SourceBuiltin,
		Schema: capability.Schema{
			Required: []string{"text_to_remember"},
			Properties: map[string]capability.Property{
				"text_to_remember": {Type: "string", Description: "The information to store."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			text := stringArg(args, "text_to_remember")
			if text == "" {
				return errorPayload("The 'text_to_remember' argument must be a non-empty string."), nil
			}
			if svc == nil {
				return errorPayload("Memory is not available in this session."), nil
			}

			if err := svc.Remember(ctx, text, map[string]string{"source": "agent"}); err != nil {
				logging.CapabilityWarn("add_to_memory failed: %v", err)
				return errorPayload("An error occurred while adding to memory: %v", err), nil
			}
			return payload(statusPayload{Status: "success", Message: memory.AddSuccessMessage}), nil
		},
	}
}
