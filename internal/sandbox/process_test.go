package sandbox

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix userland binaries")
	}
}

func TestProcessRunnerEcho(t *testing.T) {
	skipOnWindows(t)
	r := NewProcessRunner(t.TempDir(), 10*time.Second)

	result, err := r.Run(context.Background(), Command{Path: "echo", Args: []string{"hello", "world"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected success, got %+v", result)
	}
	if strings.TrimSpace(result.Stdout) != "hello world" {
		t.Errorf("got stdout %q", result.Stdout)
	}
	if result.Mode != ModeProcess {
		t.Errorf("got mode %q", result.Mode)
	}
}

func TestProcessRunnerNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	r := NewProcessRunner(t.TempDir(), 10*time.Second)

	result, err := r.Run(context.Background(), Command{Path: "false"})
	if err != nil {
		t.Fatalf("non-zero exit must not be an error: %v", err)
	}
	if result.OK() {
		t.Error("expected failure result")
	}
	if result.ExitCode == 0 {
		t.Errorf("got exit code %d, want non-zero", result.ExitCode)
	}
}

func TestProcessRunnerMissingBinary(t *testing.T) {
	r := NewProcessRunner(t.TempDir(), 10*time.Second)

	_, err := r.Run(context.Background(), Command{Path: "definitely-not-a-real-binary-43a1"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestProcessRunnerTimeout(t *testing.T) {
	skipOnWindows(t)
	r := NewProcessRunner(t.TempDir(), 200*time.Millisecond)

	result, err := r.Run(context.Background(), Command{Path: "sleep", Args: []string{"10"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Killed {
		t.Fatal("expected the run to be killed at the deadline")
	}
	if !strings.Contains(result.KillReason, "timeout") {
		t.Errorf("got kill reason %q", result.KillReason)
	}
	if result.Duration >= 10*time.Second {
		t.Errorf("run should have stopped early, took %s", result.Duration)
	}
}

func TestProcessRunnerStdin(t *testing.T) {
	skipOnWindows(t)
	r := NewProcessRunner(t.TempDir(), 10*time.Second)

	result, err := r.Run(context.Background(), Command{Path: "cat", Stdin: "pass through"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Stdout != "pass through" {
		t.Errorf("got stdout %q", result.Stdout)
	}
}

func TestProcessRunnerWorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	r := NewProcessRunner(dir, 10*time.Second)

	result, err := r.Run(context.Background(), Command{Path: "pwd"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// macOS tempdirs resolve through /private; compare suffixes.
	got := strings.TrimSpace(result.Stdout)
	if !strings.HasSuffix(got, strings.TrimPrefix(dir, "/private")) {
		t.Errorf("got working directory %q, want %q", got, dir)
	}
}

func TestProcessRunnerScrubsEnvironment(t *testing.T) {
	skipOnWindows(t)
	t.Setenv("ALICE_SECRET_TOKEN", "leaky")

	r := NewProcessRunner(t.TempDir(), 10*time.Second)
	result, err := r.Run(context.Background(), Command{Path: "env"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.Contains(result.Stdout, "ALICE_SECRET_TOKEN") {
		t.Error("host environment leaked into the sandbox")
	}

	// Explicit extras do pass through.
	result, err = r.Run(context.Background(), Command{Path: "env", Env: []string{"GREETING=hi"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(result.Stdout, "GREETING=hi") {
		t.Error("command environment extras should be visible")
	}
}

func TestProcessRunnerOutputCap(t *testing.T) {
	skipOnWindows(t)
	// yes floods stdout; the cap fills instantly and the deadline
	// reaps the process.
	r := NewProcessRunner(t.TempDir(), 500*time.Millisecond)
	r.MaxOutputBytes = 64

	result, err := r.Run(context.Background(), Command{Path: "yes", Args: []string{"spam"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Stdout) > 64 {
		t.Errorf("stdout exceeds cap: %d bytes", len(result.Stdout))
	}
	if !result.Truncated {
		t.Error("result should be marked truncated")
	}
}
