package builtin

import (
	"context"

	"github.com/MrSnowNB/project-alice/internal/capability"
)

// AssistanceCapability names the capability the agent loop intercepts
// to bring the human operator into the conversation.
const AssistanceCapability = "request_human_assistance"

// AssistanceAcknowledged is the placeholder result for the assistance
// capability. The agent loop intercepts the call before it would run.
const AssistanceAcknowledged = "The human has been notified. Please await their response."

// requestHumanAssistance exists as a descriptor so the model can call
// it; the agent loop routes the call to the operator instead of
// executing it.
func requestHumanAssistance() *capability.Capability {
	return &capability.Capability{
		Name:        AssistanceCapability,
		Description: "Asks the human operator for help when the agent is stuck, lacks information only the human has, or needs a decision. The task pauses until the human responds.",
		Source:      capability.SourceBuiltin,
		Schema: capability.Schema{
			Required: []string{"request"},
			Properties: map[string]capability.Property{
				"request": {Type: "string", Description: "The question or request for the human."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return AssistanceAcknowledged, nil
		},
	}
}
