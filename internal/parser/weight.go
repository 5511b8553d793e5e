package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/coffee-ingest/internal/entity"
)

// Conversion constants to grams.
const (
	GramsPerOunce    = 28.3495
	GramsPerPound    = 453.592
	GramsPerKilogram = 1000.0

	// DefaultWeightGrams is used when no weight can be determined.
	DefaultWeightGrams = 250
)

const (
	weightFieldWeight     = 0.95
	weightTitleWeight     = 0.9
	weightOptionWeight    = 0.8
	weightAttributeWeight = 0.8
)

var (
	// "8 1/2 oz", "1 1/4 lb"
	mixedFractionPattern = regexp.MustCompile(`(?i)\b(\d+)\s+(\d+)\s*/\s*(\d+)\s*(oz|ounces?|lbs?|pounds?)\b`)
	// "1/2 lb"
	fractionPattern = regexp.MustCompile(`(?i)(?:^|[^\d/])(\d+)\s*/\s*(\d+)\s*(oz|ounces?|lbs?|pounds?)\b`)
	// "250g", "0.5 kg", "12 oz", "1,000 g", "0,5kg"
	unitPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kilograms?|kilos?|kgs?|grams?|gms?|gr|g|ounces?|oz|pounds?|lbs?)\b`)
	// a bare number is taken as grams
	bareNumberPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*$`)

	weightAttributeNames = regexp.MustCompile(`(?i)\b(weight|size|pack|quantity|net\s*wt)\b`)
)

// WeightInput gathers every weight signal of a variant. A known integer
// gram value always wins over text.
type WeightInput struct {
	Grams      *int
	Weight     *float64
	WeightUnit string
	Title      string
	Options    []string
	Attributes []entity.Attribute
}

// WeightParser converts weight signals into whole grams.
type WeightParser struct {
	defaultGrams int
}

// NewWeightParser creates a weight parser; non-positive defaults fall back to 250 g.
func NewWeightParser(defaultGrams int) *WeightParser {
	if defaultGrams <= 0 {
		defaultGrams = DefaultWeightGrams
	}
	return &WeightParser{defaultGrams: defaultGrams}
}

// ParseVariant parses the weight of a variant.
func (p *WeightParser) ParseVariant(v entity.Variant) Result[int] {
	return p.Parse(WeightInput{
		Grams:      v.Grams,
		Weight:     v.Weight,
		WeightUnit: v.WeightUnit,
		Title:      v.Title,
		Options:    v.Options,
		Attributes: v.Attributes,
	})
}

// ParseText parses a single free-text weight such as "8 1/2 oz".
func (p *WeightParser) ParseText(text string) Result[int] {
	return p.Parse(WeightInput{Title: text})
}

// Parse resolves grams in priority order: known grams, weight + unit
// fields, then text. Values are truncated to whole grams.
func (p *WeightParser) Parse(in WeightInput) Result[int] {
	cands := weightCandidates(in)
	original := joinTexts(cands)
	return safely(p.defaultGrams, original, func() Result[int] {
		if in.Grams != nil && *in.Grams > 0 {
			return scored(*in.Grams, 1.0, SourceGrams, strconv.Itoa(*in.Grams))
		}
		if in.Weight != nil && *in.Weight > 0 {
			factor, known := unitFactor(in.WeightUnit)
			text := strings.TrimSpace(fmt.Sprintf("%g %s", *in.Weight, in.WeightUnit))
			if g := toGrams(*in.Weight, factor); g > 0 {
				if !known {
					warning := "unrecognised weight unit " + quote(in.WeightUnit) + ", assumed grams"
					if in.WeightUnit == "" {
						warning = "no weight unit, assumed grams"
					}
					return scored(g, weightFieldWeight*fallbackFactor, SourceWeightField, text, warning)
				}
				return scored(g, weightFieldWeight, SourceWeightField, text)
			}
		}
		for _, c := range cands {
			if g, ok := parseWeightText(c.text); ok {
				return scored(g, c.weight, c.source, c.text)
			}
		}
		for _, c := range cands {
			if m := bareNumberPattern.FindStringSubmatch(c.text); m != nil {
				v, _ := strconv.ParseFloat(m[1], 64)
				if g := toGrams(v, 1); g > 0 {
					return scored(g, c.weight*fallbackFactor, c.source, c.text, "no unit given, assumed grams")
				}
			}
		}
		return Result[int]{
			Value:        p.defaultGrams,
			Source:       SourceDefault,
			Warnings:     []string{fmt.Sprintf("no weight found, defaulted to %dg", p.defaultGrams)},
			OriginalText: original,
		}
	})
}

func weightCandidates(in WeightInput) []candidate {
	cands := []candidate{{text: in.Title, source: SourceTitle, weight: weightTitleWeight}}
	for _, o := range in.Options {
		cands = append(cands, candidate{text: o, source: SourceOption, weight: weightOptionWeight})
	}
	for _, a := range in.Attributes {
		if !weightAttributeNames.MatchString(a.Name) {
			continue
		}
		for _, t := range a.Terms {
			cands = append(cands, candidate{text: t, source: SourceAttribute, weight: weightAttributeWeight})
		}
	}
	return cands
}

// parseWeightText extracts grams from text carrying an explicit unit.
func parseWeightText(text string) (int, bool) {
	if m := mixedFractionPattern.FindStringSubmatch(text); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den > 0 {
			factor, _ := unitFactor(m[4])
			if g := toGrams(whole+num/den, factor); g > 0 {
				return g, true
			}
		}
	}
	if m := fractionPattern.FindStringSubmatch(text); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den > 0 {
			factor, _ := unitFactor(m[3])
			if g := toGrams(num/den, factor); g > 0 {
				return g, true
			}
		}
	}
	if m := unitPattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(normalizeDecimal(m[1]), 64)
		if err == nil {
			factor, _ := unitFactor(m[2])
			if g := toGrams(v, factor); g > 0 {
				return g, true
			}
		}
	}
	return 0, false
}

// normalizeDecimal turns "0,5" into "0.5" and "1,000" into "1000".
func normalizeDecimal(s string) string {
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return s
	}
	if len(s)-i-1 == 3 {
		return strings.Replace(s, ",", "", 1)
	}
	return strings.Replace(s, ",", ".", 1)
}

// unitFactor returns grams per unit. Unknown and empty units count as grams.
func unitFactor(unit string) (float64, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch {
	case u == "" || u == "g" || u == "gr" || strings.HasPrefix(u, "gm") || strings.HasPrefix(u, "gram"):
		return 1, u != ""
	case strings.HasPrefix(u, "kg") || strings.HasPrefix(u, "kilo"):
		return GramsPerKilogram, true
	case u == "oz" || strings.HasPrefix(u, "ounce"):
		return GramsPerOunce, true
	case strings.HasPrefix(u, "lb") || strings.HasPrefix(u, "pound"):
		return GramsPerPound, true
	}
	return 1, false
}

// toGrams converts and truncates; the epsilon keeps 0.29 kg at 290 g.
func toGrams(v, factor float64) int {
	return int(math.Floor(v*factor + 1e-6))
}
