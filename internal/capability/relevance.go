package capability

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords are goal tokens too common to carry relevance signal.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"in": true, "into": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "then": true,
	"this": true, "to": true, "use": true, "using": true, "with": true,
}

// selectForGoal returns built-ins plus the synthesized capabilities
// most lexically relevant to the goal. Built-ins always survive; the
// limit bounds the total advertised set. The result is name-sorted so
// the tool list stays stable across turns.
func (r *Registry) selectForGoal(goal string, limit int) []*Capability {
	all := r.All()

	var builtins, synthesized []*Capability
	for _, c := range all {
		if c.IsBuiltin() {
			builtins = append(builtins, c)
		} else {
			synthesized = append(synthesized, c)
		}
	}

	slots := limit - len(builtins)
	if limit <= 0 || len(synthesized) <= slots {
		byName(all)
		return all
	}
	if slots <= 0 {
		byName(builtins)
		return builtins
	}

	goalTokens := tokenize(goal)

	type scored struct {
		c     *Capability
		score int
	}
	ranked := make([]scored, 0, len(synthesized))
	for _, c := range synthesized {
		ranked = append(ranked, scored{c: c, score: overlap(goalTokens, tokenize(c.Name+" "+c.Description))})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if !ranked[i].c.LastUsed.Equal(ranked[j].c.LastUsed) {
			return ranked[i].c.LastUsed.After(ranked[j].c.LastUsed)
		}
		return ranked[i].c.Name < ranked[j].c.Name
	})

	selected := make([]*Capability, 0, limit)
	selected = append(selected, builtins...)
	for i := 0; i < slots && i < len(ranked); i++ {
		selected = append(selected, ranked[i].c)
	}

	byName(selected)
	return selected
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// stopwords and single-character fragments.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// overlap counts how many query tokens appear in the candidate set.
func overlap(query, candidate []string) int {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}

	set := make(map[string]bool, len(candidate))
	for _, t := range candidate {
		set[t] = true
	}

	count := 0
	for _, t := range query {
		if set[t] {
			count++
		}
	}
	return count
}

func byName(caps []*Capability) {
	sort.Slice(caps, func(i, j int) bool {
		return caps[i].Name < caps[j].Name
	})
}
