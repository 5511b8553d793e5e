package parser

import (
	"regexp"
	"strings"
)

// BeanSpecies is the canonical coffee species.
type BeanSpecies string

const (
	SpeciesArabica        BeanSpecies = "arabica"
	SpeciesRobusta        BeanSpecies = "robusta"
	SpeciesLiberica       BeanSpecies = "liberica"
	SpeciesExcelsa        BeanSpecies = "excelsa"
	SpeciesArabicaRobusta BeanSpecies = "arabica_robusta"
)

var (
	arabicaPattern  = regexp.MustCompile(`(?i)\barabicas?\b`)
	robustaPattern  = regexp.MustCompile(`(?i)\brobustas?\b|\bcanephora\b|\bconilon\b`)
	libericaPattern = regexp.MustCompile(`(?i)\bliberica\b`)
	excelsaPattern  = regexp.MustCompile(`(?i)\bexcelsa\b`)
)

// SpeciesParser detects the bean species.
type SpeciesParser struct{}

// NewSpeciesParser creates a species parser.
func NewSpeciesParser() *SpeciesParser { return &SpeciesParser{} }

// Parse checks the sources in order. A text mentioning both arabica and
// robusta is a blend. No mention at all defaults to arabica.
func (p *SpeciesParser) Parse(in ProductText) Result[BeanSpecies] {
	cands := []candidate{
		{text: in.Raw, source: SourceNormalization, weight: normalizationWeight},
		{text: in.Title, source: SourceTitle, weight: productTitleWeight},
		{text: strings.Join(in.Tags, " , "), source: SourceTags, weight: productTagsWeight},
		{text: in.Description, source: SourceDescription, weight: descriptionWeight},
	}
	original := joinTexts(cands)
	return safely(SpeciesArabica, original, func() Result[BeanSpecies] {
		for _, c := range cands {
			if s, ok := matchSpecies(c.text); ok {
				return scored(s, c.weight, c.source, c.text)
			}
		}
		return Result[BeanSpecies]{
			Value:        SpeciesArabica,
			Source:       SourceDefault,
			Warnings:     []string{"no species mentioned, defaulted to arabica"},
			OriginalText: original,
		}
	})
}

func matchSpecies(text string) (BeanSpecies, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	arabica := arabicaPattern.MatchString(text)
	robusta := robustaPattern.MatchString(text)
	switch {
	case arabica && robusta:
		return SpeciesArabicaRobusta, true
	case libericaPattern.MatchString(text):
		return SpeciesLiberica, true
	case excelsaPattern.MatchString(text):
		return SpeciesExcelsa, true
	case robusta:
		return SpeciesRobusta, true
	case arabica:
		return SpeciesArabica, true
	}
	return "", false
}
