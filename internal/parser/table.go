package parser

import (
	"regexp"
	"strings"
)

// Rule maps a set of patterns to one value.
type Rule[T any] struct {
	Value    T
	Patterns []*regexp.Regexp
}

// Table is an ordered rule list. Order encodes specificity: the first rule
// with a matching pattern wins.
type Table[T any] []Rule[T]

// rule compiles case-insensitive patterns for a value.
func rule[T any](value T, patterns ...string) Rule[T] {
	r := Rule[T]{Value: value}
	for _, p := range patterns {
		r.Patterns = append(r.Patterns, regexp.MustCompile(`(?i)`+p))
	}
	return r
}

// Match returns the value of the first rule matching text and the matched fragment.
func (t Table[T]) Match(text string) (T, string, bool) {
	var zero T
	if strings.TrimSpace(text) == "" {
		return zero, "", false
	}
	for _, r := range t {
		for _, p := range r.Patterns {
			if m := p.FindString(text); m != "" {
				return r.Value, m, true
			}
		}
	}
	return zero, "", false
}

// candidate is one text source evaluated by a parser, with its source weight.
type candidate struct {
	text   string
	source Source
	weight float64
}

// ladder tries each candidate in order, primary table first and fallback
// table second, and stops at the first match.
func ladder[T any](cands []candidate, primary, fallback Table[T]) (Result[T], bool) {
	for _, c := range cands {
		if v, _, ok := primary.Match(c.text); ok {
			return scored(v, c.weight, c.source, c.text), true
		}
		if fallback == nil {
			continue
		}
		if v, m, ok := fallback.Match(c.text); ok {
			return scored(v, c.weight*fallbackFactor, c.source, c.text,
				"low-confidence fallback pattern matched "+quote(m)), true
		}
	}
	var zero Result[T]
	return zero, false
}

// joinTexts concatenates the candidate texts for diagnostics.
func joinTexts(cands []candidate) string {
	parts := make([]string, 0, len(cands))
	for _, c := range cands {
		if strings.TrimSpace(c.text) != "" {
			parts = append(parts, c.text)
		}
	}
	return strings.Join(parts, " | ")
}

func quote(s string) string { return `"` + s + `"` }
