package parser

import (
	"regexp"
	"strings"

	"github.com/user/coffee-ingest/internal/entity"
	"go.uber.org/zap"
)

// GrindType is a grind size / brew method bucket.
type GrindType string

const (
	GrindWhole             GrindType = "whole"
	GrindSouthIndianFilter GrindType = "south_indian_filter"
	GrindTurkish           GrindType = "turkish"
	GrindColdBrew          GrindType = "cold_brew"
	GrindFrenchPress       GrindType = "french_press"
	GrindAeropress         GrindType = "aeropress"
	GrindMokaPot           GrindType = "moka_pot"
	GrindSyphon            GrindType = "syphon"
	GrindPourOver          GrindType = "pour_over"
	GrindEspresso          GrindType = "espresso"
	GrindOmni              GrindType = "omni"
	GrindFilter            GrindType = "filter"
	GrindUnknown           GrindType = "unknown"
)

// Source weights for grind parsing.
const (
	grindTitleWeight     = 0.9
	grindOptionWeight    = 0.8
	grindAttributeWeight = 0.8
	grindMethodWeight    = 0.7
)

// grindPrimary is evaluated top to bottom; specific buckets precede the
// generic ones that would otherwise swallow them (south indian filter
// before filter, cold brew before anything mentioning "brew").
var grindPrimary = Table[GrindType]{
	rule(GrindWhole, `\bwhole[\s-]*beans?\b`, `\bwhole\b`, `\bbeans?\s*only\b`, `\bun[\s-]?ground\b`, `\bno\s*grind\b`),
	rule(GrindSouthIndianFilter, `\bsouth[\s-]*indian[\s-]*filter\b`, `\bindian\s*filter\b`, `\bs\.?\s?i\.?\s*filter\b`, `\bfilter\s*kaa?pi\b`, `\bdavara\b`),
	rule(GrindTurkish, `\bturkish\b`, `\bibrik\b`, `\bcezve\b`),
	rule(GrindColdBrew, `\bcold[\s-]*brew\b`),
	rule(GrindFrenchPress, `\bfrench[\s-]*press\b`, `\bcafeti[eè]re\b`, `\bplunger\b`),
	rule(GrindAeropress, `\baero[\s-]*press\b`),
	rule(GrindMokaPot, `\bmoka\b`, `\bstove[\s-]*top\b`),
	rule(GrindSyphon, `\bs[yi]phon\b`),
	rule(GrindPourOver, `\bpour[\s-]*over\b`, `\bv60\b`, `\bchemex\b`, `\bkalita\b`),
	rule(GrindEspresso, `\bespresso\b`),
	rule(GrindOmni, `\bomni\b`, `\ball[\s-]*purpose\b`),
	rule(GrindFilter, `\bfilter\b`),
}

// grindFallback holds texture words that only imply a method.
var grindFallback = Table[GrindType]{
	rule(GrindTurkish, `\bextra[\s-]*fine\b`, `\bpowder(ed)?\b`),
	rule(GrindFrenchPress, `\bcoarse\b`),
	rule(GrindEspresso, `\bfine\b`),
	rule(GrindFilter, `\bmedium[\s-]*grind\b`, `\bground\b`),
	rule(GrindWhole, `\bbeans?\b`),
}

// grindMethods infers grind from brewing appliance words.
var grindMethods = Table[GrindType]{
	rule(GrindEspresso, `\bespresso\s*machine\b`, `\bportafilter\b`),
	rule(GrindMokaPot, `\bbialetti\b`),
	rule(GrindPourOver, `\bdripper\b`, `\bhario\b`),
	rule(GrindFrenchPress, `\bpress[\s-]*pot\b`),
	rule(GrindColdBrew, `\bcold[\s-]*drip\b`),
	rule(GrindFilter, `\bdrip\b`, `\bcoffee\s*(maker|machine)\b`, `\bbrewer\b`),
}

var grindAttributeNames = regexp.MustCompile(`(?i)^\s*(grind\s*size|grind|brewing\s*method)\s*$`)

// GrindParser maps variant text to a GrindType.
type GrindParser struct {
	logger *zap.Logger
}

// NewGrindParser creates a grind parser. A nil logger disables telemetry.
func NewGrindParser(logger *zap.Logger) *GrindParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrindParser{logger: logger.With(zap.String("parser", "grind"))}
}

// Parse determines the grind of one variant. Title is tried first, then the
// second option slot (platform-A), then a grind attribute (platform-B), then
// brewing appliance words across all of them.
func (p *GrindParser) Parse(v entity.Variant) Result[GrindType] {
	cands := grindCandidates(v)
	original := joinTexts(cands)
	return safely(GrindUnknown, original, func() Result[GrindType] {
		if r, ok := ladder(cands, grindPrimary, grindFallback); ok {
			return r
		}
		if v, m, ok := grindMethods.Match(original); ok {
			return scored(v, grindMethodWeight, SourceFallbackMethod, original,
				"grind inferred from brewing method "+quote(m))
		}
		return noMatch(GrindUnknown, original, "no grind pattern matched")
	})
}

// ParseText parses a single free-text value as if it were a variant title.
func (p *GrindParser) ParseText(text string) Result[GrindType] {
	return p.Parse(entity.Variant{Title: text})
}

// ParseMany parses every variant, preserving order and length, and logs one
// telemetry line for the batch.
func (p *GrindParser) ParseMany(variants []entity.Variant) []Result[GrindType] {
	results := make([]Result[GrindType], len(variants))
	matched := 0
	total := 0.0
	for i, v := range variants {
		results[i] = p.Parse(v)
		if results[i].Value != GrindUnknown {
			matched++
			total += results[i].Confidence
		}
	}
	avg := 0.0
	if matched > 0 {
		avg = total / float64(matched)
	}
	p.logger.Debug("grind batch parsed",
		zap.Int("variants", len(variants)),
		zap.Int("matched", matched),
		zap.Float64("avg_confidence", avg),
	)
	return results
}

func grindCandidates(v entity.Variant) []candidate {
	cands := []candidate{{text: v.Title, source: SourceTitle, weight: grindTitleWeight}}
	if len(v.Options) >= 2 {
		cands = append(cands, candidate{text: v.Options[1], source: SourceOption, weight: grindOptionWeight})
	}
	for _, a := range v.Attributes {
		if grindAttributeNames.MatchString(a.Name) {
			cands = append(cands, candidate{
				text:   strings.Join(a.Terms, " "),
				source: SourceAttribute,
				weight: grindAttributeWeight,
			})
			break
		}
	}
	return cands
}

// DetermineDefaultGrind picks the product-level default from per-variant
// results. Whole bean wins outright; otherwise the most frequent grind wins,
// ties going to the higher confidence and then to table order. It reports
// false when no variant has a known grind.
func DetermineDefaultGrind(results []Result[GrindType]) (GrindType, bool) {
	counts := make(map[GrindType]int)
	best := make(map[GrindType]float64)
	for _, r := range results {
		if r.Value == GrindUnknown || r.Value == "" {
			continue
		}
		if r.Value == GrindWhole {
			return GrindWhole, true
		}
		counts[r.Value]++
		if r.Confidence > best[r.Value] {
			best[r.Value] = r.Confidence
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	var winner GrindType
	for _, rl := range grindPrimary {
		g := rl.Value
		n, ok := counts[g]
		if !ok {
			continue
		}
		if winner == "" || n > counts[winner] || (n == counts[winner] && best[g] > best[winner]) {
			winner = g
		}
	}
	return winner, true
}
