package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrSnowNB/project-alice/internal/agent"
	"github.com/MrSnowNB/project-alice/internal/types"
)

func TestJoinArgs(t *testing.T) {
	got := joinArgs([]string{"find", "the", "answer"})
	if got != "find the answer" {
		t.Fatalf("expected 'find the answer', got '%s'", got)
	}
}

func TestResolveWorkspaceFlag(t *testing.T) {
	dir := t.TempDir()
	workspace = dir
	defer func() { workspace = "" }()

	got, err := resolveWorkspace()
	if err != nil {
		t.Fatalf("resolveWorkspace returned error: %v", err)
	}
	if got != dir {
		t.Fatalf("expected %s, got %s", dir, got)
	}
}

func TestConsoleOperatorApprove(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false}, // EOF denies
	}

	inv := types.CapabilityInvocation{Name: "write_file", Args: map[string]any{"file_path": "a.txt"}}
	for _, tc := range cases {
		var out bytes.Buffer
		op := newConsoleOperator(strings.NewReader(tc.input), &out)
		if got := op.Approve(inv); got != tc.want {
			t.Errorf("Approve with input %q = %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "write_file") {
			t.Errorf("prompt should name the capability: %s", out.String())
		}
	}
}

func TestConsoleOperatorAssist(t *testing.T) {
	var out bytes.Buffer
	op := newConsoleOperator(strings.NewReader("Use the backup endpoint.\n"), &out)
	if got := op.Assist("Which endpoint should I use?"); got != "Use the backup endpoint." {
		t.Fatalf("Assist = %q", got)
	}
	if !strings.Contains(out.String(), "Which endpoint should I use?") {
		t.Fatalf("prompt should relay the request: %s", out.String())
	}

	// Empty reply keeps the session going.
	op = newConsoleOperator(strings.NewReader("\n"), io.Discard)
	if got := op.Assist("q"); !strings.Contains(got, "Continue as planned") {
		t.Fatalf("empty reply = %q", got)
	}

	// EOF concludes so piped sessions terminate.
	op = newConsoleOperator(strings.NewReader(""), io.Discard)
	if got := op.Assist("q"); !strings.Contains(strings.ToLower(got), "conclude") {
		t.Fatalf("EOF reply = %q", got)
	}
}

func TestConsoleOperatorSteer(t *testing.T) {
	status := agent.BreakerStatus{
		Goal:     "the goal",
		Attempts: 3,
		Failures: []agent.FailureRecord{
			{Capability: "web_search", Category: agent.CategoryRateLimited},
			{Capability: "web_search", Category: agent.CategoryRateLimited},
		},
	}

	var out bytes.Buffer
	op := newConsoleOperator(strings.NewReader("Try the archive instead.\n"), &out)
	guidance, ok := op.Steer(status)
	if !ok || guidance != "Try the archive instead." {
		t.Fatalf("Steer = %q, %v", guidance, ok)
	}
	if !strings.Contains(out.String(), "web_search") {
		t.Fatalf("breaker banner should list failures: %s", out.String())
	}

	op = newConsoleOperator(strings.NewReader("\n"), io.Discard)
	if guidance, ok := op.Steer(status); ok || guidance != "" {
		t.Fatalf("empty line should stop: %q, %v", guidance, ok)
	}
}

func TestToolsListEmptyCatalog(t *testing.T) {
	logger = zap.NewNop()
	workspace = t.TempDir()
	defer func() { workspace = "" }()

	output := captureOutput(t, func() {
		if err := toolsList(&cobra.Command{}, nil); err != nil {
			t.Fatalf("toolsList returned error: %v", err)
		}
	})

	if !strings.Contains(output, "No synthesized tools") {
		t.Fatalf("expected empty-catalog notice, got: %s", output)
	}
}

func TestToolsPruneNothingStale(t *testing.T) {
	logger = zap.NewNop()
	workspace = t.TempDir()
	defer func() { workspace = "" }()

	output := captureOutput(t, func() {
		if err := toolsPrune(&cobra.Command{}, nil); err != nil {
			t.Fatalf("toolsPrune returned error: %v", err)
		}
	})

	if !strings.Contains(output, "Nothing idle") {
		t.Fatalf("expected nothing-to-prune notice, got: %s", output)
	}
}

func TestRenderMarkdownKeepsContent(t *testing.T) {
	got := renderMarkdown("# Agent Final Report\n\nThe answer is Paris.\n")
	if !strings.Contains(got, "Paris") {
		t.Fatalf("rendered output lost content: %q", got)
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = wOut

	fn()

	_ = wOut.Close()
	os.Stdout = origOut

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, rOut)
	return buf.String()
}
