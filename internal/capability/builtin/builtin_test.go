package builtin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/memory"
	"github.com/MrSnowNB/project-alice/internal/sandbox"
)

// stubMemory is a scriptable MemoryService.
type stubMemory struct {
	result      *memory.RetrieveResult
	err         error
	remembered  []string
	rememberErr error
}

func (m *stubMemory) Retrieve(_ context.Context, query string) (*memory.RetrieveResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *stubMemory) Remember(_ context.Context, text string, _ map[string]string) error {
	if m.rememberErr != nil {
		return m.rememberErr
	}
	m.remembered = append(m.remembered, text)
	return nil
}

// decodePayload unmarshals a capability payload for assertions.
func decodePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("payload is not valid JSON: %v\npayload: %s", err, raw)
	}
	return m
}

func TestRegisterAll(t *testing.T) {
	reg := capability.NewRegistry()
	ws := t.TempDir()
	deps := Deps{
		Memory:    &stubMemory{},
		Runner:    sandbox.NewProcessRunner(ws, 0),
		Workspace: ws,
	}

	if err := Register(reg, deps); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	want := []string{
		"add_to_memory",
		"execute_script",
		"request_human_assistance",
		"retrieve_from_memory",
		"run_shell_command",
		"search_the_web",
		"write_file",
	}
	if reg.Count() != len(want) {
		t.Fatalf("expected %d capabilities, got %d", len(want), reg.Count())
	}
	for _, name := range want {
		c := reg.Get(name)
		if c == nil {
			t.Errorf("capability %s not registered", name)
			continue
		}
		if !c.IsBuiltin() {
			t.Errorf("capability %s should be builtin", name)
		}
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := capability.NewRegistry()
	deps := Deps{Workspace: t.TempDir()}

	if err := Register(reg, deps); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := Register(reg, deps); err == nil {
		t.Error("second Register should fail on duplicate names")
	}
}

func TestStringSliceArg(t *testing.T) {
	args := map[string]any{
		"good":  []any{"a", "b"},
		"mixed": []any{"a", 2, true},
		"wrong": "not-a-list",
	}

	if got := stringSliceArg(args, "good"); len(got) != 2 || got[1] != "b" {
		t.Errorf("unexpected: %v", got)
	}
	if got := stringSliceArg(args, "mixed"); len(got) != 3 || got[1] != "2" || got[2] != "true" {
		t.Errorf("mixed values should stringify: %v", got)
	}
	if got := stringSliceArg(args, "wrong"); got != nil {
		t.Errorf("non-list should be nil, got %v", got)
	}
	if got := stringSliceArg(args, "missing"); got != nil {
		t.Errorf("missing key should be nil, got %v", got)
	}
}

func TestRequestHumanAssistancePlaceholder(t *testing.T) {
	c := requestHumanAssistance()

	out, err := c.Execute(context.Background(), map[string]any{"request": "which account?"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != AssistanceAcknowledged {
		t.Errorf("unexpected placeholder: %q", out)
	}
}
