package agent

import (
	"strings"
	"testing"
)

func TestPlanPrompt(t *testing.T) {
	got := planPrompt("Find the capital of France.")
	if !strings.Contains(got, "User Goal: Find the capital of France.") {
		t.Errorf("goal not embedded: %q", got)
	}
	if !strings.HasSuffix(got, "formatted as a numbered list.") {
		t.Errorf("missing format directive: %q", got)
	}
}

func TestDecideContextNoStepsNoFailures(t *testing.T) {
	got := decideContext("1. Search the web.", nil, NewFailureHistory())

	if !strings.Contains(got, "The overall plan is:\n1. Search the web.") {
		t.Errorf("plan not embedded: %q", got)
	}
	if !strings.Contains(got, "You have already completed the following steps:\nNo steps completed yet.") {
		t.Errorf("missing empty-steps placeholder: %q", got)
	}
	if strings.Contains(got, "failed so far") {
		t.Errorf("failure section should be absent without records: %q", got)
	}
}

func TestDecideContextWithStepsAndFailures(t *testing.T) {
	failures := NewFailureHistory()
	failures.Record("web_search", CategoryRateLimited)
	failures.Record("web_search", CategoryRateLimited)

	steps := []string{
		"Executed tool `web_search` with arguments `{query: capital of France}`.",
		"Executed tool `read_file` with arguments `{file_path: notes.txt}`.",
	}
	got := decideContext("1. Search.\n2. Read.", steps, failures)

	if !strings.Contains(got, steps[0]+"\n"+steps[1]) {
		t.Errorf("steps not joined into prompt: %q", got)
	}
	if strings.Contains(got, noStepsCompleted) {
		t.Errorf("placeholder must not appear once steps exist: %q", got)
	}
	if !strings.Contains(got, "Capabilities that have failed so far:\n- web_search: rate_limited x2") {
		t.Errorf("failure summary missing: %q", got)
	}
}

func TestReplanPromptMinimal(t *testing.T) {
	got := replanPrompt("the goal", "Human: hi\nAI: hello", NewFailureHistory(), nil, "")

	if !strings.Contains(got, "Original User Goal: the goal") {
		t.Errorf("goal not embedded: %q", got)
	}
	if !strings.Contains(got, "---\nHuman: hi\nAI: hello\n---") {
		t.Errorf("history not fenced: %q", got)
	}
	if strings.Contains(got, "Failure history:") || strings.Contains(got, "Available capabilities:") {
		t.Errorf("optional sections should be absent: %q", got)
	}
	if !strings.HasSuffix(got, "Respond with only the new, revised plan, formatted as a numbered list.") {
		t.Errorf("missing closing directive: %q", got)
	}
}

func TestReplanPromptAntiRepeatDirective(t *testing.T) {
	failures := NewFailureHistory()
	failures.Record("web_search", CategoryRateLimited)
	failures.Record("web_search", CategoryRateLimited)
	failures.Record("read_file", CategoryNotFound)

	catalog := []string{"- web_search: searches the web", "- write_file: writes a file"}
	got := replanPrompt("the goal", "history", failures, catalog, "/ws/.alice/tools")

	if !strings.Contains(got, "Failure history:\n- read_file: not_found x1\n- web_search: rate_limited x2") {
		t.Errorf("failure summary missing or misordered: %q", got)
	}
	if !strings.Contains(got, "must not be retried with the same approach: web_search.") {
		t.Errorf("anti-repeat directive missing: %q", got)
	}
	if !strings.Contains(got, "create a Go tool file in /ws/.alice/tools") {
		t.Errorf("synthesis hint missing tools dir: %q", got)
	}
	if !strings.Contains(got, "or use request_human_assistance.") {
		t.Errorf("assistance escape hatch missing: %q", got)
	}
	if !strings.Contains(got, "Available capabilities:\n- web_search: searches the web\n- write_file: writes a file") {
		t.Errorf("catalog missing: %q", got)
	}
}

func TestReplanPromptSingleFailuresSkipDirective(t *testing.T) {
	failures := NewFailureHistory()
	failures.Record("web_search", CategoryRateLimited)

	got := replanPrompt("the goal", "history", failures, nil, "")
	if !strings.Contains(got, "Failure history:\n- web_search: rate_limited x1") {
		t.Errorf("failure summary missing: %q", got)
	}
	if strings.Contains(got, "must not be retried") {
		t.Errorf("anti-repeat directive requires repeats: %q", got)
	}
}

func TestReportPrompt(t *testing.T) {
	got := reportPrompt("the goal", "Human: hi")
	if !strings.Contains(got, "Original User Goal: the goal") {
		t.Errorf("goal not embedded: %q", got)
	}
	if !strings.HasSuffix(got, "Provide only the final summary answer for the report.") {
		t.Errorf("missing closing directive: %q", got)
	}
}

func TestContainsExitKeyword(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Please conclude the task.", true},
		{"Here is my FINAL ANSWER: 42", true},
		{"stop", true},
		{"You should exit now", true},
		{"That will depend on the weekend", true}, // "end" matches as a substring
		{"Keep going, try the other source", false},
		{"continue with the plan", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := containsExitKeyword(tc.text); got != tc.want {
			t.Errorf("containsExitKeyword(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
