// Package agent implements the orchestration state machine that drives
// a session from goal to final report.
//
// The loop:
//
//	Plan → Decide → {PermissionGate | AssistanceGate | Report}
//	Execute → Classify → {MarkComplete | HandleError} → Decide
//	HandleError → Replan → {Decide | CircuitBreaker}
//
// Planning and deciding are reasoning calls; execution goes through the
// capability registry. Failed turns never escape the loop: they are
// classified, recorded, and fed to the replanner, and after too many
// consecutive replans the circuit breaker hands control to the human
// operator. Every session, even a terminated one, ends with a report.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/capability/builtin"
	"github.com/MrSnowNB/project-alice/internal/config"
	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/types"
)

// Config holds the loop settings.
type Config struct {
	// MaxReplans is the consecutive replan budget before the circuit
	// breaker trips. Steering resets the count.
	MaxReplans int

	// CompactThreshold is the log length that triggers compaction.
	// Zero disables compaction.
	CompactThreshold int

	// CompactWindow is how many recent messages survive compaction.
	CompactWindow int

	// Dangerous lists capability names that need operator approval.
	Dangerous []string

	// ExecTimeout bounds a single capability invocation.
	ExecTimeout time.Duration

	// CatalogLimit bounds how many capability definitions ride along
	// on reasoning calls. Zero means all of them.
	CatalogLimit int

	// ToolsDir is where synthesized tool files live; named in the
	// replan prompt so the model can extend its own toolset.
	ToolsDir string
}

// DefaultConfig returns the stock loop settings.
func DefaultConfig() Config {
	return Config{
		MaxReplans:       3,
		CompactThreshold: 30,
		CompactWindow:    10,
		Dangerous:        []string{"write_file", "execute_script", "run_shell_command"},
		ExecTimeout:      5 * time.Minute,
		CatalogLimit:     16,
	}
}

// FromConfig maps the loaded application configuration onto loop
// settings.
func FromConfig(cfg *config.Config) Config {
	out := DefaultConfig()
	out.MaxReplans = cfg.Agent.MaxReplans
	out.CompactThreshold = cfg.Agent.CompactThreshold
	out.CompactWindow = cfg.Agent.CompactWindow
	out.Dangerous = cfg.Agent.Dangerous
	out.ToolsDir = cfg.ToolsDir()
	if t := cfg.Sandbox.Timeout(); t > 0 {
		out.ExecTimeout = t
	}
	return out
}

// IsDangerous reports whether a capability requires operator approval.
// Matching is case-insensitive.
func (c Config) IsDangerous(name string) bool {
	for _, d := range c.Dangerous {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// Agent runs sessions against a reasoning client, a capability
// registry, and a human operator.
type Agent struct {
	llm      types.LLMClient
	registry *capability.Registry
	operator Operator
	cfg      Config
}

// New builds an Agent. A nil operator falls back to AutoOperator, and
// zero-value critical settings fall back to defaults; an explicitly
// empty Dangerous slice disables gating.
func New(llm types.LLMClient, registry *capability.Registry, operator Operator, cfg Config) *Agent {
	if operator == nil {
		operator = AutoOperator{}
	}
	if cfg.MaxReplans <= 0 {
		cfg.MaxReplans = DefaultConfig().MaxReplans
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = DefaultConfig().ExecTimeout
	}
	if cfg.Dangerous == nil {
		cfg.Dangerous = DefaultConfig().Dangerous
	}
	return &Agent{
		llm:      llm,
		registry: registry,
		operator: operator,
		cfg:      cfg,
	}
}

// Run drives one session from goal to final report. The returned
// session carries the report, the completed steps, the failure history,
// and the full log. The only error paths are an empty goal and context
// cancellation; capability and reasoning failures are absorbed by the
// recovery loop.
func (a *Agent) Run(ctx context.Context, goal string) (*Session, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("goal cannot be empty")
	}

	s := NewSession(goal)
	logging.Agent("session start: goal %d chars, %d capabilities", len(goal), a.registry.Count())

	a.plan(ctx, s)

	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		inv, ok := a.decide(ctx, s)
		if !ok {
			break
		}

		if inv.Name == builtin.AssistanceCapability {
			if a.assistanceGate(s, *inv) {
				break
			}
			if a.replanAndRoute(ctx, s) {
				break
			}
			continue
		}

		if a.cfg.IsDangerous(inv.Name) && !a.operator.Approve(*inv) {
			s.ReplaceLast(types.NewUserMessage(fmt.Sprintf(deniedTemplate, inv.Name)))
			logging.Agent("operator denied %s", inv.Name)
			continue
		}

		result := a.execute(ctx, s, *inv)
		if failed, category := Classify(result); failed {
			a.handleError(s, *inv, result, category)
			if a.replanAndRoute(ctx, s) {
				break
			}
			continue
		}

		s.MarkCompleted(*inv)
		logging.Agent("step complete: %s (%d total)", inv.Name, len(s.CompletedSteps))
	}

	a.report(ctx, s)
	return s, nil
}

// plan asks for the initial numbered plan. A blank or failed completion
// leaves a single fallback step naming the goal, so the plan is never
// empty once set.
func (a *Agent) plan(ctx context.Context, s *Session) {
	timer := logging.StartTimer(logging.CategoryAgent, "plan")
	defer timer.Stop()

	text, err := a.llm.Complete(ctx, planPrompt(s.Goal))
	if err != nil {
		text = transportError(err)
		logging.AgentError("plan: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		text = "1. " + s.Goal
	}
	s.Plan = text
	logging.Agent("plan set (%d chars)", len(s.Plan))
}

// decide asks the reasoning engine for the next step. The context turn
// (plan, completed steps, failure categories) is ephemeral: it rides on
// the request but only the assistant reply is persisted. On the first
// turn the goal is prepended as a user turn inside the request. Returns
// the pending invocation, or ok=false when the reply is a final answer
// (a failed transport reads as one).
func (a *Agent) decide(ctx context.Context, s *Session) (*types.CapabilityInvocation, bool) {
	timer := logging.StartTimer(logging.CategoryAgent, "decide")
	defer timer.Stop()

	request := make([]types.Message, 0, len(s.Log)+2)
	if len(s.Log) == 0 {
		request = append(request, types.NewUserMessage(s.Goal))
	}
	request = append(request, s.Log...)
	request = append(request, types.NewUserMessage(decideContext(s.Plan, s.CompletedSteps, s.Failures)))

	tools := a.registry.Definitions(s.Plan, a.cfg.CatalogLimit)
	resp, err := a.llm.CompleteWithTools(ctx, request, tools)
	if err != nil {
		s.Append(types.NewAssistantMessage(transportError(err)))
		logging.AgentError("decide: %v", err)
		return nil, false
	}

	inv, ok := resp.Invocation()
	if !ok {
		s.Append(types.NewAssistantMessage(resp.Text))
		logging.Agent("decide: final answer (%d chars)", len(resp.Text))
		return nil, false
	}

	s.Append(types.NewAssistantInvocation(resp.Text, inv))
	logging.Agent("decide: invoke %s", inv.Name)
	return &inv, true
}

// execute resolves and runs the invocation with a deadline, appending
// exactly one result message carrying the invocation's correlation id.
// An unknown capability yields an error result, never a crash.
func (a *Agent) execute(ctx context.Context, s *Session, inv types.CapabilityInvocation) types.Message {
	timer := logging.StartTimer(logging.CategoryAgent, "execute")
	defer timer.Stop()

	execCtx, cancel := context.WithTimeout(ctx, a.cfg.ExecTimeout)
	defer cancel()

	res, err := a.registry.Execute(execCtx, inv.Name, inv.Args)

	var msg types.Message
	if err != nil {
		msg = types.NewCapabilityResult(inv, types.ResultError, errorResultPayload(err))
		logging.AgentError("execute %s: %v", inv.Name, err)
	} else {
		msg = types.NewCapabilityResult(inv, types.ResultOK, res.Output)
	}
	s.Append(msg)
	return msg
}

// errorResultPayload encodes a loop-level execution error the same way
// capabilities encode their own failures, so classification sees one
// format.
func errorResultPayload(err error) string {
	data, mErr := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	if mErr != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// handleError records the classified failure and injects the diagnostic
// as a user turn for the replanner to analyze.
func (a *Agent) handleError(s *Session, inv types.CapabilityInvocation, result types.Message, category Category) {
	s.Failures.Record(inv.Name, category)
	s.Append(types.NewUserMessage(fmt.Sprintf(errorDiagnosticTemplate, result.Content, category)))
	logging.AgentWarn("capability %s failed: %s (%d failures recorded)", inv.Name, category, len(s.Failures.Records))
}

// replan asks the planning module for a fresh approach, then compacts
// the log if it has grown past the threshold. A blank completion keeps
// the previous plan.
func (a *Agent) replan(ctx context.Context, s *Session) {
	timer := logging.StartTimer(logging.CategoryAgent, "replan")
	defer timer.Stop()

	text, err := a.llm.Complete(ctx, replanPrompt(s.Goal, types.FormatHistory(s.Log), s.Failures, a.catalogLines(s.Plan), a.cfg.ToolsDir))
	if err != nil {
		text = transportError(err)
		logging.AgentError("replan: %v", err)
	}
	if strings.TrimSpace(text) != "" {
		s.Plan = text
	}
	s.ReplanAttempts++
	s.Compact(a.cfg.CompactThreshold, a.cfg.CompactWindow)
	logging.Agent("replan %d/%d", s.ReplanAttempts, a.cfg.MaxReplans)
}

// replanAndRoute runs Replan and then the circuit-breaker check. It
// reports whether the operator terminated the session. Steering resets
// the replan budget; nothing else does.
func (a *Agent) replanAndRoute(ctx context.Context, s *Session) bool {
	a.replan(ctx, s)
	if s.ReplanAttempts < a.cfg.MaxReplans {
		return false
	}

	guidance, ok := a.operator.Steer(BreakerStatus{
		Goal:     s.Goal,
		Plan:     s.Plan,
		Attempts: s.ReplanAttempts,
		Failures: s.Failures.Records,
	})
	if !ok {
		logging.AgentWarn("circuit breaker: session terminated after %d consecutive replans", s.ReplanAttempts)
		return true
	}

	s.Append(types.NewUserMessage(guidance))
	s.ReplanAttempts = 0
	logging.Agent("circuit breaker: steering accepted, replan budget reset")
	return false
}

// assistanceGate hands a request_human_assistance call to the operator.
// The pending invocation is replaced by the reply as a user turn. It
// reports whether the most recent human turn asks the agent to
// conclude.
func (a *Agent) assistanceGate(s *Session, inv types.CapabilityInvocation) bool {
	request, _ := inv.Args["request"].(string)
	logging.Agent("assistance requested (%d chars)", len(request))

	reply := a.operator.Assist(request)
	s.ReplaceLast(types.NewUserMessage(reply))

	if containsExitKeyword(s.LastUserContent()) {
		logging.Agent("assistance reply asks to conclude")
		return true
	}
	return false
}

// catalogLines renders the relevance-narrowed capability catalog for
// the replan prompt.
func (a *Agent) catalogLines(plan string) []string {
	defs := a.registry.Definitions(plan, a.cfg.CatalogLimit)
	lines := make([]string, 0, len(defs))
	for _, d := range defs {
		lines = append(lines, fmt.Sprintf("- %s: %s", d.Name, d.Description))
	}
	return lines
}
