package parser

import (
	"regexp"
	"strings"
)

// RoastLevel is the canonical roast bucket.
type RoastLevel string

const (
	RoastLight       RoastLevel = "light"
	RoastLightMedium RoastLevel = "light_medium"
	RoastMedium      RoastLevel = "medium"
	RoastMediumDark  RoastLevel = "medium_dark"
	RoastDark        RoastLevel = "dark"
	RoastUnknown     RoastLevel = "unknown"
)

// Source weights shared by the product-level parsers (roast, process).
const (
	normalizationWeight = 0.95
	productTitleWeight  = 0.9
	productTagsWeight   = 0.8
	descriptionWeight   = 0.6
)

// ProductText is the set of product-level texts the roast and process
// parsers read, in priority order.
type ProductText struct {
	Raw         string // normalization.*_raw
	Title       string
	Tags        []string
	Description string
}

// Compound levels precede the single words they contain.
var roastPrimary = Table[RoastLevel]{
	rule(RoastLightMedium, `\blight[\s-]*(to[\s-]*)?medium\b`, `\bmedium[\s-]*light\b`, `\bcinnamon\b`),
	rule(RoastMediumDark, `\bmedium[\s-]*(to[\s-]*)?dark\b`, `\bdark[\s-]*medium\b`, `\bfull[\s-]*city\b`, `\bvienna\b`),
	rule(RoastDark, `\bdark\b`, `\bfrench\s*roast\b`, `\bitalian\s*roast\b`, `\bespresso\s*dark\b`),
	rule(RoastLight, `\blight\b`, `\bblonde\b`, `\bnordic\b`),
	rule(RoastMedium, `\bmedium\b`, `\bcity\s*roast\b`, `\bamerican\s*roast\b`),
}

var roastFallback = Table[RoastLevel]{
	rule(RoastLight, `\bfilter\s*roast\b`),
	rule(RoastMediumDark, `\bespresso\s*roast\b`),
	rule(RoastMedium, `\bomni\s*roast\b`),
}

var clauseSplit = regexp.MustCompile(`[.;\n!?|]+`)

// RoastParser maps product text to a RoastLevel.
type RoastParser struct{}

// NewRoastParser creates a roast parser.
func NewRoastParser() *RoastParser { return &RoastParser{} }

// Parse walks the source ladder and returns the first roast match.
func (p *RoastParser) Parse(in ProductText) Result[RoastLevel] {
	cands := productCandidates(in, "roast")
	original := joinTexts(cands)
	return safely(RoastUnknown, original, func() Result[RoastLevel] {
		if r, ok := ladder(cands, roastPrimary, roastFallback); ok {
			return r
		}
		return noMatch(RoastUnknown, original, "no roast level pattern matched")
	})
}

// ParseText parses a single free-text roast description.
func (p *RoastParser) ParseText(text string) Result[RoastLevel] {
	return p.Parse(ProductText{Title: text})
}

// productCandidates builds the normalization > title > tags > description
// ladder. The description only contributes clauses mentioning keyword, so
// "medium body" in a tasting blurb does not read as a roast level.
func productCandidates(in ProductText, keyword string) []candidate {
	cands := []candidate{
		{text: in.Raw, source: SourceNormalization, weight: normalizationWeight},
		{text: in.Title, source: SourceTitle, weight: productTitleWeight},
	}
	if len(in.Tags) > 0 {
		cands = append(cands, candidate{text: strings.Join(in.Tags, " , "), source: SourceTags, weight: productTagsWeight})
	}
	if clauses := keywordClauses(in.Description, keyword); clauses != "" {
		cands = append(cands, candidate{text: clauses, source: SourceDescription, weight: descriptionWeight})
	}
	return cands
}

func keywordClauses(text, keyword string) string {
	if text == "" {
		return ""
	}
	var out []string
	for _, c := range clauseSplit.Split(text, -1) {
		if strings.Contains(strings.ToLower(c), keyword) {
			out = append(out, strings.TrimSpace(c))
		}
	}
	return strings.Join(out, ". ")
}
