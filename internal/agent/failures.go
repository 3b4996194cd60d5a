package agent

import (
	"fmt"
	"sort"
	"time"
)

// FailureRecord is one classified capability failure.
type FailureRecord struct {
	Capability string
	Category   Category
	At         time.Time
}

// FailureHistory accumulates classified failures across a session. A
// session is a single sequential control flow, so the history needs no
// locking.
type FailureHistory struct {
	Records []FailureRecord
}

// NewFailureHistory returns an empty history.
func NewFailureHistory() *FailureHistory {
	return &FailureHistory{}
}

// Record appends one failure for a capability.
func (h *FailureHistory) Record(capability string, category Category) {
	h.Records = append(h.Records, FailureRecord{
		Capability: capability,
		Category:   category,
		At:         time.Now(),
	})
}

// Count returns how many times a capability has failed.
func (h *FailureHistory) Count(capability string) int {
	n := 0
	for _, r := range h.Records {
		if r.Capability == capability {
			n++
		}
	}
	return n
}

// Failed returns the sorted set of capability names with at least one
// recorded failure.
func (h *FailureHistory) Failed() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range h.Records {
		if !seen[r.Capability] {
			seen[r.Capability] = true
			names = append(names, r.Capability)
		}
	}
	sort.Strings(names)
	return names
}

// Repeated returns the sorted capability names with two or more
// recorded failures. These must not be retried as-is.
func (h *FailureHistory) Repeated() []string {
	counts := make(map[string]int)
	for _, r := range h.Records {
		counts[r.Capability]++
	}
	var names []string
	for name, n := range counts {
		if n >= 2 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Summary renders one line per capability/category pair, sorted, for
// inclusion in prompts: "- name: category x2".
func (h *FailureHistory) Summary() []string {
	type key struct {
		capability string
		category   Category
	}
	counts := make(map[key]int)
	for _, r := range h.Records {
		counts[key{r.Capability, r.Category}]++
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].capability != keys[j].capability {
			return keys[i].capability < keys[j].capability
		}
		return keys[i].category < keys[j].category
	})

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s x%d", k.capability, k.category, counts[k]))
	}
	return lines
}
