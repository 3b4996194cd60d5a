package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrSnowNB/project-alice/internal/types"
)

// Session holds the mutable state of one agent run. A session is a
// single sequential control flow: the loop never touches it from more
// than one goroutine, and concurrency happens only across independent
// sessions.
type Session struct {
	// Goal is the user's objective. Immutable for the session's life.
	Goal string

	// Plan is the current numbered plan. Replaced wholesale on replan,
	// never empty once set.
	Plan string

	// Log is the conversation history. Append-only within a turn;
	// compaction and gate replacements are the only rewrites.
	Log []types.Message

	// CompletedSteps records successfully executed invocations in order.
	CompletedSteps []string

	// Failures is the per-capability failure history.
	Failures *FailureHistory

	// ReplanAttempts counts consecutive replans. Reset only by
	// circuit-breaker steering.
	ReplanAttempts int

	// FinalReport is set once, when the session reaches its terminal
	// state.
	FinalReport string

	// StartedAt is when the session began.
	StartedAt time.Time
}

// NewSession starts a session for a goal.
func NewSession(goal string) *Session {
	return &Session{
		Goal:      goal,
		Failures:  NewFailureHistory(),
		StartedAt: time.Now(),
	}
}

// Append adds a message to the log.
func (s *Session) Append(m types.Message) {
	s.Log = append(s.Log, m)
}

// ReplaceLast swaps the most recent log entry for m. The permission and
// assistance gates use this to overwrite a pending invocation with the
// operator's response.
func (s *Session) ReplaceLast(m types.Message) {
	if len(s.Log) == 0 {
		s.Log = append(s.Log, m)
		return
	}
	s.Log[len(s.Log)-1] = m
}

// MarkCompleted records a successfully executed invocation.
func (s *Session) MarkCompleted(inv types.CapabilityInvocation) {
	step := fmt.Sprintf("Executed tool `%s` with arguments `%s`.", inv.Name, types.FormatArgs(inv.Args))
	s.CompletedSteps = append(s.CompletedSteps, step)
}

// LastUserContent returns the content of the most recent user-authored
// turn, or "" when there is none.
func (s *Session) LastUserContent() string {
	for i := len(s.Log) - 1; i >= 0; i-- {
		if s.Log[i].Role == types.RoleUser {
			return s.Log[i].Content
		}
	}
	return ""
}

// Compact trims the log once it grows past threshold: the most recent
// window messages survive verbatim behind a synthetic notice that
// stands in for everything removed. The kept window is widened
// backward when it would otherwise open with a capability result whose
// invocation was dropped.
func (s *Session) Compact(threshold, window int) {
	if threshold <= 0 || window <= 0 || len(s.Log) <= threshold {
		return
	}

	start := len(s.Log) - window
	for start > 0 && s.Log[start].IsResult() {
		start--
	}
	if start <= 0 {
		return
	}

	kept := make([]types.Message, 0, len(s.Log)-start+1)
	kept = append(kept, types.NewUserMessage(compactionNotice(start, s.CompletedSteps)))
	kept = append(kept, s.Log[start:]...)
	s.Log = kept
}

// compactionNotice is the synthetic message that replaces compacted
// history. Completed steps are restated so the model keeps its bearings
// after the cut.
func compactionNotice(removed int, steps []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[The conversation history was compacted. %d earlier messages were removed.]\n\n", removed)
	b.WriteString("Steps completed before compaction:\n")
	if len(steps) == 0 {
		b.WriteString("No steps completed yet.")
	} else {
		b.WriteString(strings.Join(steps, "\n"))
	}
	return b.String()
}
