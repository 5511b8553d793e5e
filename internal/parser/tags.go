package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	tagSeparators = regexp.MustCompile(`[\s_]+`)
	tagTrim       = regexp.MustCompile(`^[-.,:;#]+|[-.,:;#]+$`)
)

// tagAliases folds spelling variants onto one canonical tag.
var tagAliases = map[string]string{
	"singleorigin":   "single-origin",
	"so":             "single-origin",
	"blends":         "blend",
	"espresso-blend": "espresso",
	"lightroast":     "light-roast",
	"decaffeinated":  "decaf",
	"de-caf":         "decaf",
	"organic-coffee": "organic",
	"fair-trade":     "fairtrade",
	"coldbrew":       "cold-brew",
	"whole-beans":    "whole-bean",
	"wholebean":      "whole-bean",
	"filter-coffee":  "filter",
	"pourover":       "pour-over",
}

var noiseTags = map[string]struct{}{
	"sale":        {},
	"new":         {},
	"featured":    {},
	"all":         {},
	"default":     {},
	"bestseller":  {},
	"best-seller": {},
	"hidden":      {},
	"frontpage":   {},
}

// NormalizeTag folds one tag into its canonical form. It returns "" for
// noise tags and blanks.
func NormalizeTag(tag string) string {
	t := strings.ToLower(norm.NFKC.String(tag))
	t = strings.TrimSpace(t)
	t = tagSeparators.ReplaceAllString(t, "-")
	t = tagTrim.ReplaceAllString(t, "")
	if t == "" {
		return ""
	}
	if alias, ok := tagAliases[t]; ok {
		t = alias
	}
	if _, noise := noiseTags[t]; noise {
		return ""
	}
	return t
}

// NormalizeTags normalizes, drops noise and dedupes, keeping first-seen order.
// Tags prefixed with "notes:" are tasting notes and are left to the note
// extractor.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		if IsNoteTag(raw) {
			continue
		}
		t := NormalizeTag(raw)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
