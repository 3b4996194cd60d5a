package agent

import (
	"context"
	"strings"

	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/types"
)

// report runs the summarization call over the full history and
// assembles the session's final report. A failed summarization call
// still produces a report; its answer section carries the error text.
func (a *Agent) report(ctx context.Context, s *Session) {
	timer := logging.StartTimer(logging.CategoryAgent, "report")
	defer timer.Stop()

	answer, err := a.llm.Complete(ctx, reportPrompt(s.Goal, types.FormatHistory(s.Log)))
	if err != nil {
		answer = transportError(err)
		logging.AgentError("report: %v", err)
	}

	s.FinalReport = RenderReport(s.Goal, s.CompletedSteps, answer)
	logging.Agent("session finished: %d steps executed, %d messages in log", len(s.CompletedSteps), len(s.Log))
}

// RenderReport assembles the final markdown report from its parts.
func RenderReport(goal string, steps []string, answer string) string {
	var b strings.Builder
	b.WriteString("# Agent Final Report\n\n")

	b.WriteString("## User Goal\n")
	for _, line := range strings.Split(goal, "\n") {
		b.WriteString("> ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n## Executed Steps\n")
	if len(steps) == 0 {
		b.WriteString("No steps were executed.\n")
	} else {
		for _, step := range steps {
			b.WriteString("- ")
			b.WriteString(step)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Agent's Final Answer\n")
	b.WriteString(answer)
	b.WriteString("\n")
	return b.String()
}
