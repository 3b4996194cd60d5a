package agent

import "testing"

func TestRenderReport(t *testing.T) {
	steps := []string{
		"Executed tool `web_search` with arguments `{query: capital of France}`.",
		"Executed tool `remember` with arguments `{content: Paris}`.",
	}
	got := RenderReport("Find the capital of France.", steps, "The capital of France is Paris.")

	want := "# Agent Final Report\n\n" +
		"## User Goal\n" +
		"> Find the capital of France.\n\n" +
		"## Executed Steps\n" +
		"- Executed tool `web_search` with arguments `{query: capital of France}`.\n" +
		"- Executed tool `remember` with arguments `{content: Paris}`.\n\n" +
		"## Agent's Final Answer\n" +
		"The capital of France is Paris.\n"

	if got != want {
		t.Errorf("report mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderReportNoSteps(t *testing.T) {
	got := RenderReport("Do nothing.", nil, "Nothing was required.")

	want := "# Agent Final Report\n\n" +
		"## User Goal\n" +
		"> Do nothing.\n\n" +
		"## Executed Steps\n" +
		"No steps were executed.\n\n" +
		"## Agent's Final Answer\n" +
		"Nothing was required.\n"

	if got != want {
		t.Errorf("report mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderReportQuotesMultilineGoal(t *testing.T) {
	got := RenderReport("Find the capital of France.\nThen store it.", nil, "Done.")

	wantPrefix := "# Agent Final Report\n\n" +
		"## User Goal\n" +
		"> Find the capital of France.\n" +
		"> Then store it.\n\n"
	if len(got) < len(wantPrefix) || got[:len(wantPrefix)] != wantPrefix {
		t.Errorf("multi-line goal not blockquoted per line:\n%s", got)
	}
}
