package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/MrSnowNB/project-alice/internal/logging"
)

// defaultAllowedEnv lists host environment variables passed through to
// child processes. Everything else is dropped.
var defaultAllowedEnv = []string{"PATH", "HOME", "USER", "LANG", "LC_ALL", "TMPDIR"}

// ProcessRunner executes commands directly on the host with os/exec.
type ProcessRunner struct {
	// Workspace is the default working directory and the only
	// directory commands are allowed to start in.
	Workspace string

	// Timeout bounds each run. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxOutputBytes caps each captured stream. Zero means
	// DefaultMaxOutputBytes.
	MaxOutputBytes int64

	// AllowedEnv overrides the default environment allowlist.
	AllowedEnv []string
}

// NewProcessRunner returns a runner rooted at the workspace directory.
func NewProcessRunner(workspace string, timeout time.Duration) *ProcessRunner {
	return &ProcessRunner{Workspace: workspace, Timeout: timeout}
}

// Name identifies the runner implementation.
func (r *ProcessRunner) Name() string { return string(ModeProcess) }

// Run executes the command on the host, killing it at the deadline.
func (r *ProcessRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Path == "" {
		return nil, errors.New("command path is required")
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := r.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}

	dir := cmd.Dir
	if dir == "" {
		dir = r.Workspace
	}

	logging.Sandbox("Running: %s (dir=%s, timeout=%s)", cmd.String(), dir, timeout)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Path, cmd.Args...)
	execCmd.Dir = dir
	execCmd.Env = r.buildEnv(cmd.Env)
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: maxOutput}
	stderr := &limitedWriter{w: &stderrBuf, max: maxOutput}
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr

	start := time.Now()
	err := execCmd.Run()

	result := &Result{
		ExitCode:  -1,
		Stdout:    stdoutBuf.String(),
		Stderr:    stderrBuf.String(),
		Duration:  time.Since(start),
		Truncated: stdout.truncated || stderr.truncated,
		Mode:      ModeProcess,
	}
	if result.Truncated {
		logging.SandboxWarn("Output truncated for %s", cmd.Path)
	}

	switch {
	case err == nil:
		result.ExitCode = 0

	case execCtx.Err() == context.DeadlineExceeded:
		result.Killed = true
		result.KillReason = fmt.Sprintf("timeout after %s", timeout)
		logging.SandboxWarn("Killed %s: %s", cmd.Path, result.KillReason)

	case execCtx.Err() == context.Canceled:
		result.Killed = true
		result.KillReason = "canceled"

	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			logging.SandboxDebug("%s exited %d", cmd.Path, result.ExitCode)
		} else {
			// The process never started (binary missing, bad dir).
			logging.SandboxError("Failed to run %s: %v", cmd.Path, err)
			return nil, fmt.Errorf("failed to run %s: %w", cmd.Path, err)
		}
	}

	logging.Sandbox("Finished: %s -> exit=%d killed=%v duration=%s",
		cmd.Path, result.ExitCode, result.Killed, result.Duration.Round(time.Millisecond))
	return result, nil
}

// buildEnv assembles the child environment from the allowlist plus any
// command-specific extras.
func (r *ProcessRunner) buildEnv(extra []string) []string {
	allowed := r.AllowedEnv
	if allowed == nil {
		allowed = defaultAllowedEnv
	}

	env := make([]string, 0, len(allowed)+len(extra))
	for _, key := range allowed {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}
	return append(env, extra...)
}
