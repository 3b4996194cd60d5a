package agent

import (
	"reflect"
	"testing"
)

func TestFailureHistoryRecordAndCount(t *testing.T) {
	h := NewFailureHistory()
	if h.Count("web_search") != 0 {
		t.Fatalf("fresh history count = %d", h.Count("web_search"))
	}

	h.Record("web_search", CategoryRateLimited)
	h.Record("web_search", CategoryRateLimited)
	h.Record("read_file", CategoryNotFound)

	if h.Count("web_search") != 2 {
		t.Fatalf("web_search count = %d, want 2", h.Count("web_search"))
	}
	if h.Count("read_file") != 1 {
		t.Fatalf("read_file count = %d, want 1", h.Count("read_file"))
	}
	if len(h.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(h.Records))
	}
	for _, r := range h.Records {
		if r.At.IsZero() {
			t.Fatal("records must carry a timestamp")
		}
	}
}

func TestFailureHistoryFailedIsSortedAndUnique(t *testing.T) {
	h := NewFailureHistory()
	h.Record("web_search", CategoryRateLimited)
	h.Record("execute_script", CategoryExecutionError)
	h.Record("web_search", CategoryUnknown)

	want := []string{"execute_script", "web_search"}
	if got := h.Failed(); !reflect.DeepEqual(got, want) {
		t.Errorf("Failed() = %v, want %v", got, want)
	}
}

func TestFailureHistoryRepeated(t *testing.T) {
	h := NewFailureHistory()
	h.Record("web_search", CategoryRateLimited)
	h.Record("read_file", CategoryNotFound)
	if got := h.Repeated(); len(got) != 0 {
		t.Fatalf("single failures are not repeats: %v", got)
	}

	h.Record("web_search", CategoryUnknown)
	h.Record("read_file", CategoryNotFound)
	h.Record("execute_script", CategoryExecutionError)

	want := []string{"read_file", "web_search"}
	if got := h.Repeated(); !reflect.DeepEqual(got, want) {
		t.Errorf("Repeated() = %v, want %v", got, want)
	}
}

func TestFailureHistorySummary(t *testing.T) {
	h := NewFailureHistory()
	if len(h.Summary()) != 0 {
		t.Fatalf("empty history summary = %v", h.Summary())
	}

	h.Record("web_search", CategoryRateLimited)
	h.Record("execute_script", CategoryExecutionError)
	h.Record("web_search", CategoryRateLimited)
	h.Record("web_search", CategoryAuthFailed)

	want := []string{
		"- execute_script: execution_error x1",
		"- web_search: auth_failed x1",
		"- web_search: rate_limited x2",
	}
	if got := h.Summary(); !reflect.DeepEqual(got, want) {
		t.Errorf("summary lines = %v, want %v", got, want)
	}
}
