package parser

import (
	"regexp"
	"strings"
)

const (
	notesLabelWeight = 0.85
	notesTagWeight   = 0.8
)

var (
	// "Tasting notes: cherry, cocoa & jasmine." up to the end of the clause.
	notesLabelPattern = regexp.MustCompile(`(?i)(?:tasting\s+notes?|flavou?r\s+notes?|cup(?:ping)?\s+notes?|notes\s+of|tastes?\s+like)\s*[:\-–]?\s*([^.\n;]+)`)
	notesSplit        = regexp.MustCompile(`(?i)\s*(?:,|&|/|\+|\band\b|\bwith\b)\s*`)
	noteTagPrefix     = regexp.MustCompile(`(?i)^\s*notes?\s*:\s*`)
)

// flavorLexicon is scanned when no labelled list exists.
var flavorLexicon = []string{
	"chocolate", "dark chocolate", "milk chocolate", "cocoa", "caramel", "toffee",
	"honey", "molasses", "brown sugar", "vanilla", "hazelnut", "almond", "walnut",
	"peanut", "cherry", "blueberry", "strawberry", "raspberry", "blackberry",
	"blackcurrant", "citrus", "orange", "lemon", "lime", "grapefruit", "bergamot",
	"apple", "pear", "peach", "apricot", "plum", "grape", "mango", "pineapple",
	"passion fruit", "tropical fruit", "jasmine", "floral", "rose", "hibiscus",
	"black tea", "cinnamon", "clove", "cardamom", "spice", "pepper", "tobacco",
	"earthy", "malt", "stone fruit", "red wine", "winey", "jaggery",
}

var lexiconPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(flavorLexicon))
	for i, w := range flavorLexicon {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}()

// NotesParser extracts tasting notes.
type NotesParser struct{}

// NewNotesParser creates a notes parser.
func NewNotesParser() *NotesParser { return &NotesParser{} }

// IsNoteTag reports whether tag lists tasting notes, as in "notes: cherry".
func IsNoteTag(tag string) bool { return noteTagPrefix.MatchString(tag) }

// Parse looks for a labelled list in the description, then "notes:" tags,
// then lexicon hits in the description.
func (p *NotesParser) Parse(description string, tags []string) Result[[]string] {
	original := description
	if len(tags) > 0 {
		original = joinTexts([]candidate{{text: description}, {text: strings.Join(tags, ", ")}})
	}
	return safely[[]string](nil, original, func() Result[[]string] {
		if m := notesLabelPattern.FindStringSubmatch(description); m != nil {
			if notes := splitNotes(m[1]); len(notes) > 0 {
				return scored(notes, notesLabelWeight, SourceDescription, m[0])
			}
		}

		var fromTags []string
		for _, t := range tags {
			if loc := noteTagPrefix.FindStringIndex(t); loc != nil {
				fromTags = append(fromTags, splitNotes(t[loc[1]:])...)
			}
		}
		if notes := dedupeNotes(fromTags); len(notes) > 0 {
			return scored(notes, notesTagWeight, SourceTags, strings.Join(tags, ", "))
		}

		var hits []string
		for i, re := range lexiconPatterns {
			if re.MatchString(description) {
				hits = append(hits, flavorLexicon[i])
			}
		}
		if len(hits) > 0 {
			return scored(dropSubsumed(hits), notesLabelWeight*fallbackFactor, SourceDescription, description,
				"notes inferred from flavor vocabulary")
		}
		return noMatch[[]string](nil, original, "no tasting notes found")
	})
}

func splitNotes(list string) []string {
	var out []string
	for _, part := range notesSplit.Split(list, -1) {
		n := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'`))
		if n == "" || len(n) > 40 {
			continue
		}
		out = append(out, n)
	}
	return dedupeNotes(out)
}

func dedupeNotes(notes []string) []string {
	seen := make(map[string]struct{}, len(notes))
	out := notes[:0:0]
	for _, n := range notes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// dropSubsumed removes "chocolate" when "dark chocolate" was also found.
func dropSubsumed(hits []string) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		subsumed := false
		for _, other := range hits {
			if other != h && strings.Contains(other, h) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, h)
		}
	}
	return out
}
