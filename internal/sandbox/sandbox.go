// Package sandbox is the execution layer for scripts and shell commands.
// Everything the agent runs against the host goes through a Runner, which
// enforces a wall-clock deadline, caps captured output, confines the
// working directory to the workspace, and scrubs the environment.
//
// Two runners exist:
//   - process: direct execution via os/exec. No shell is involved; the
//     command line is split into argv before it reaches the runner.
//   - docker: one container per run with the workspace bind-mounted,
//     CPU/memory limits, and network disabled unless enabled in config.
package sandbox

import (
	"context"
	"io"
	"time"
)

// Mode selects the isolation strategy for command execution.
type Mode string

const (
	// ModeProcess runs commands directly on the host (default).
	ModeProcess Mode = "process"

	// ModeDocker runs each command in a fresh container.
	ModeDocker Mode = "docker"
)

// DefaultMaxOutputBytes caps captured stdout and stderr per stream.
const DefaultMaxOutputBytes = 1 << 20 // 1 MiB

// DefaultTimeout applies when no deadline is configured.
const DefaultTimeout = 60 * time.Second

// Command is a single program invocation. No shell interpretation
// happens anywhere downstream; Args are passed to the kernel as-is.
type Command struct {
	// Path is the program to run (e.g. "python3", "ls").
	Path string `json:"path"`

	// Args are the program arguments.
	Args []string `json:"args,omitempty"`

	// Dir is the working directory. Empty means the runner's
	// configured workspace.
	Dir string `json:"dir,omitempty"`

	// Env holds extra KEY=VALUE pairs merged over the scrubbed base
	// environment.
	Env []string `json:"env,omitempty"`

	// Stdin is piped to the program's standard input when non-empty.
	Stdin string `json:"stdin,omitempty"`
}

// String renders the command for logs.
func (c Command) String() string {
	out := c.Path
	for _, a := range c.Args {
		out += " " + a
	}
	return out
}

// Result describes a finished run. A non-zero exit code is a normal
// result, not an error; the runner only returns an error when the
// execution machinery itself failed.
type Result struct {
	// ExitCode is the program's exit status, or -1 when the program
	// was killed before exiting on its own.
	ExitCode int `json:"exit_code"`

	// Stdout and Stderr are the captured streams, each truncated at
	// the runner's output cap.
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// Duration is the wall-clock run time.
	Duration time.Duration `json:"duration"`

	// Killed is true when the deadline or a cancellation stopped the
	// program. KillReason says which.
	Killed     bool   `json:"killed"`
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated reports that at least one stream hit the output cap.
	Truncated bool `json:"truncated"`

	// Mode records which runner handled the command.
	Mode Mode `json:"mode"`
}

// Output interleaves stdout and stderr for the session transcript.
func (r *Result) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// OK reports whether the program ran to completion with exit code 0.
func (r *Result) OK() bool {
	return !r.Killed && r.ExitCode == 0
}

// Runner executes commands under the sandbox policy.
type Runner interface {
	// Run executes the command and returns its result. The context
	// bounds the run in addition to the runner's own deadline.
	Run(ctx context.Context, cmd Command) (*Result, error)

	// Name identifies the runner implementation.
	Name() string
}

// limitedWriter caps total bytes written, discarding the overflow while
// reporting full writes so the producing process never sees an error.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
