package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrSnowNB/project-alice/internal/agent"
	"github.com/MrSnowNB/project-alice/internal/types"
)

// Prompt styling shares the semantic palette used across the project
// branding: red for destructive asks, yellow for cautions, blue for
// informational asks.
var (
	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// consoleOperator answers the agent's permission, assistance, and
// steering questions on the terminal. Reads are line-oriented; EOF
// resolves every question conservatively (deny, conclude, stop).
type consoleOperator struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsoleOperator(in io.Reader, out io.Writer) *consoleOperator {
	return &consoleOperator{in: bufio.NewReader(in), out: out}
}

var _ agent.Operator = (*consoleOperator)(nil)

// Approve asks before a dangerous capability runs. Only an explicit
// "y"/"yes" grants permission.
func (o *consoleOperator) Approve(inv types.CapabilityInvocation) bool {
	fmt.Fprintln(o.out)
	fmt.Fprintln(o.out, dangerStyle.Render(fmt.Sprintf("The agent wants to run '%s'", inv.Name)))
	fmt.Fprintln(o.out, mutedStyle.Render("  arguments: "+types.FormatArgs(inv.Args)))
	fmt.Fprint(o.out, warnStyle.Render("Allow? [y/N]: "))

	line, err := o.readLine()
	if err != nil {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Assist relays a request_human_assistance question. A reply containing
// an exit keyword (conclude, final answer, stop, ...) ends the session;
// anything else becomes guidance for the next plan.
func (o *consoleOperator) Assist(request string) string {
	fmt.Fprintln(o.out)
	fmt.Fprintln(o.out, infoStyle.Render("The agent is asking for help:"))
	fmt.Fprintln(o.out, "  "+request)
	fmt.Fprintln(o.out, mutedStyle.Render(`  (answer with "conclude" or "stop" to end the session)`))
	fmt.Fprint(o.out, infoStyle.Render("Your reply: "))

	line, err := o.readLine()
	if err != nil {
		return "No human is available in this session. Conclude the task with the information you have."
	}
	if line == "" {
		return "No additional guidance. Continue as planned."
	}
	return line
}

// Steer is consulted when the replan budget runs out. Guidance restarts
// the loop with a fresh budget; an empty line lets the session end.
func (o *consoleOperator) Steer(status agent.BreakerStatus) (string, bool) {
	fmt.Fprintln(o.out)
	fmt.Fprintln(o.out, dangerStyle.Render(fmt.Sprintf("Circuit breaker: %d replans without progress.", status.Attempts)))
	if len(status.Failures) > 0 {
		fmt.Fprintln(o.out, mutedStyle.Render("  recent failures:"))
		for _, f := range tailFailures(status.Failures, 5) {
			fmt.Fprintln(o.out, mutedStyle.Render(fmt.Sprintf("    %s (%s)", f.Capability, f.Category)))
		}
	}
	fmt.Fprint(o.out, warnStyle.Render("New guidance to continue, or press Enter to stop: "))

	line, err := o.readLine()
	if err != nil || line == "" {
		return "", false
	}
	return line, true
}

func (o *consoleOperator) readLine() (string, error) {
	line, err := o.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func tailFailures(records []agent.FailureRecord, n int) []agent.FailureRecord {
	if len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}
