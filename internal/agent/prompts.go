package agent

import (
	"fmt"
	"strings"
)

// The prompt templates below are load-bearing: local models are
// sensitive to their exact wording, so edits here change agent
// behavior. Whitespace inside the literals is intentional.

const planPromptTemplate = `Based on the user's goal, create a concise, step-by-step plan to achieve it.
Each step should be a clear action for the agent.

User Goal: %s

Respond with only the plan, formatted as a numbered list.`

const decideContextTemplate = `You are an autonomous AI agent. Your job is to execute a plan to fulfill the user's goal.
Review the plan, the conversation history, and the steps you have already completed.

Decide on the next step:
1. If you have gathered all the necessary information and can now directly answer the user's goal, provide the final answer as a concise summary.
2. Otherwise, select the single best tool to execute for the *next incomplete* step in the plan.

The overall plan is:
%s

You have already completed the following steps:
%s`

const replanPromptTemplate = `You are an AI agent's planning module. The agent has hit an error or received new human feedback.
Review the entire conversation history and the original user goal. Your task is to create a new, actionable, step-by-step plan to achieve the original goal.

**Critically analyze the history.** The previous plan failed. The new plan *must* introduce a new approach to get past the error. For example, if a tool failed, try calling it with different parameters or use a different tool entirely. If a web search yields no results, try a different, more general search query.

Original User Goal: %s

Conversation History:
---
%s
---`

const reportPromptTemplate = `You are the summarization module for an AI agent.
Your task is to write the "Agent's Final Answer" section of a final report.
Based on the original user goal and the full conversation history, write a concise, final answer that summarizes the outcome of the task.

Original User Goal: %s

Full Conversation History:
---
%s
---

Provide only the final summary answer for the report.`

const errorDiagnosticTemplate = "The last tool call failed with the following output:\n\n%s\n\nFailure category: %s.\n\nPlease analyze this error and create a plan to recover."

const deniedTemplate = "The user has denied permission to run the '%s' tool. Please choose a different approach."

const transportErrorTemplate = "Error: The API call failed with an exception: %v"

const noStepsCompleted = "No steps completed yet."

// planPrompt asks for the initial numbered plan.
func planPrompt(goal string) string {
	return fmt.Sprintf(planPromptTemplate, goal)
}

// decideContext builds the ephemeral context turn for a decide call. It
// is sent with the history but never persisted to the log.
func decideContext(plan string, steps []string, failures *FailureHistory) string {
	completed := noStepsCompleted
	if len(steps) > 0 {
		completed = strings.Join(steps, "\n")
	}
	prompt := fmt.Sprintf(decideContextTemplate, plan, completed)
	if failures != nil && len(failures.Records) > 0 {
		prompt += "\n\nCapabilities that have failed so far:\n" + strings.Join(failures.Summary(), "\n")
	}
	return prompt
}

// replanPrompt asks for a revised plan after a failure or human
// feedback. The failure history and an anti-repeat directive are
// appended when present, along with a relevance-narrowed capability
// catalog so the new plan names tools that actually exist.
func replanPrompt(goal, history string, failures *FailureHistory, catalog []string, toolsDir string) string {
	var b strings.Builder
	fmt.Fprintf(&b, replanPromptTemplate, goal, history)

	if failures != nil && len(failures.Records) > 0 {
		b.WriteString("\n\nFailure history:\n")
		b.WriteString(strings.Join(failures.Summary(), "\n"))
		if repeated := failures.Repeated(); len(repeated) > 0 {
			fmt.Fprintf(&b, "\n\nThe following capabilities have failed more than once and must not be retried with the same approach: %s.", strings.Join(repeated, ", "))
			b.WriteString(" Either synthesize a new tool")
			if toolsDir != "" {
				fmt.Fprintf(&b, " (use write_file to create a Go tool file in %s with a metadata header comment and a RunTool entrypoint)", toolsDir)
			}
			b.WriteString(" or use request_human_assistance.")
		}
	}

	if len(catalog) > 0 {
		b.WriteString("\n\nAvailable capabilities:\n")
		b.WriteString(strings.Join(catalog, "\n"))
	}

	b.WriteString("\n\nRespond with only the new, revised plan, formatted as a numbered list.")
	return b.String()
}

// reportPrompt asks for the final answer section of the report.
func reportPrompt(goal, history string) string {
	return fmt.Sprintf(reportPromptTemplate, goal, history)
}

// transportError renders a failed reasoning call as assistant text so
// the turn flows through the loop instead of crashing it.
func transportError(err error) string {
	return fmt.Sprintf(transportErrorTemplate, err)
}

// exitKeywords end the session when the most recent human turn contains
// any of them.
var exitKeywords = []string{"conclude", "final answer", "stop", "end", "exit"}

// containsExitKeyword reports whether text asks the agent to wrap up.
// Matching is a case-insensitive substring scan.
func containsExitKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range exitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
