package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	// trailing pack size, e.g. "Monsoon Malabar - 250g", "Kenya AA (1 kg)", "Blend | 12 oz"
	nameWeightSuffix = regexp.MustCompile(`(?i)\s*[-–|,(\[]*\s*\d+(?:[.,]\d+)?\s*(?:kg|kgs|g|gm|gms|grams?|oz|ounces?|lbs?|pounds?)\s*[)\]]?\s*$`)
	namePackSuffix   = regexp.MustCompile(`(?i)\s*[-–|,(\[]*\s*(?:pack\s+of\s+\d+|\d+\s*x\s*\d+\s*\w*|\d+\s*-?\s*pack)\s*[)\]]?\s*$`)
	slugInvalid      = regexp.MustCompile(`[^a-z0-9]+`)
	decafPattern     = regexp.MustCompile(`(?i)\bdecaf(feinated)?\b|\bswiss\s*water\b|\bmountain\s*water\b|\bsugar\s*cane\s*process\b|\bsugarcane\s*process\b|\bco2\s*process\b|\bethyl\s*acetate\b`)
)

// blockElements get a line break after their text so words from adjacent
// blocks are not glued together.
const blockElements = "p, div, li, br, h1, h2, h3, h4, h5, h6, tr, blockquote"

// HTMLToText renders an HTML fragment as plain text, dropping scripts and
// styles and collapsing whitespace within lines.
func HTMLToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(whitespace.ReplaceAllString(html, " "))
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// CleanName normalizes a product title for display: NFKC, trailing pack or
// weight suffixes removed, whitespace collapsed.
func CleanName(title string) string {
	name := norm.NFKC.String(title)
	name = strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
	for {
		stripped := nameWeightSuffix.ReplaceAllString(name, "")
		stripped = namePackSuffix.ReplaceAllString(stripped, "")
		stripped = strings.TrimRight(stripped, " -–|,")
		if stripped == name || stripped == "" {
			break
		}
		name = stripped
	}
	return name
}

// Slugify produces a lower-case ASCII slug, folding accents ("Café" -> "cafe").
func Slugify(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	slug := slugInvalid.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}

// DetectDecaf reports whether any of the texts mentions decaffeination.
func DetectDecaf(texts ...string) bool {
	for _, t := range texts {
		if t != "" && decafPattern.MatchString(t) {
			return true
		}
	}
	return false
}
