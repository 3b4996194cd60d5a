package agent

import "github.com/MrSnowNB/project-alice/internal/types"

// Operator is the human side of the loop: permission gating for
// dangerous capabilities, replies to assistance requests, and steering
// when the circuit breaker trips. Implementations block until the
// human responds.
type Operator interface {
	// Approve asks whether a dangerous capability may execute.
	Approve(inv types.CapabilityInvocation) bool

	// Assist answers a request_human_assistance query with free-form
	// guidance.
	Assist(request string) string

	// Steer is consulted when the replan budget is exhausted. It
	// returns steering guidance and true to continue, or false to
	// terminate the session.
	Steer(status BreakerStatus) (string, bool)
}

// BreakerStatus is what the circuit breaker presents to the operator
// before asking for steering or termination.
type BreakerStatus struct {
	Goal     string
	Plan     string
	Attempts int
	Failures []FailureRecord
}

// AutoOperator runs sessions without a human: dangerous capabilities
// are approved, assistance requests are answered with an instruction to
// conclude (which routes the session to its report), and the circuit
// breaker terminates.
type AutoOperator struct{}

func (AutoOperator) Approve(types.CapabilityInvocation) bool { return true }

func (AutoOperator) Assist(string) string {
	return "No human is available in this session. Conclude the task with the information you have."
}

func (AutoOperator) Steer(BreakerStatus) (string, bool) { return "", false }
