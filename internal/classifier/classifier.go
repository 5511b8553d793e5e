// Package classifier decides whether a product listing is a coffee product.
// Keyword tiers are tried from most to least explicit; an optional external
// fallback handles what the keywords cannot decide.
package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/parser"
	"github.com/user/coffee-ingest/internal/repository"
)

// Method names how a classification was reached.
type Method string

const (
	MethodCategory     Method = "category"
	MethodTags         Method = "tags"
	MethodKeywords     Method = "keywords"
	MethodFallback     Method = "fallback"
	MethodUndetermined Method = "undetermined"
	MethodUnavailable  Method = "unavailable"
)

const (
	categoryConfidence = 0.95
	tagsConfidence     = 0.85
	keywordConfidence  = 0.7
)

const (
	coffeeTerms = `coffees?|espresso|arabica|robusta|liberica|excelsa|single[\s-]*origin|coffee\s*beans?|whole\s*beans?|ground\s*coffee|roast(ed)?|decaf|cold\s*brew|filter\s*coffee|microlot|peaberry|geisha|gesha|bourbon|typica|sl-?28|catuai|caturra`

	// Non-coffee products that routinely mention coffee ("coffee grinder").
	nonCoffeeTerms = `grinders?|kettles?|drippers?|mugs?|tumblers?|filter\s*papers?|paper\s*filters?|scales?|tampers?|brewers?|machines?|equipment|accessor(y|ies)|gift\s*cards?|vouchers?|e-?gift|merch(andise)?|t-?shirts?|tees?|hoodies?|tote(\s*bags?)?|apparel|matcha|chai|cocoa\s*powder|hot\s*chocolate|syrups?|servers?|carafes?|workshops?|classes|course`
)

var (
	coffeeWords = regexp.MustCompile(`(?i)\b(` + coffeeTerms + `)\b`)

	// coffeeEntry is a category entry that names nothing but coffee.
	coffeeEntry = regexp.MustCompile(`(?i)^\W*(` + coffeeTerms + `)\W*$`)

	nonCoffeeWords = regexp.MustCompile(`(?i)\b(` + nonCoffeeTerms + `|teas?)\b`)

	// Coffee titles use "tea" as a flavour word, so titles only veto on tea
	// named as a product.
	titleNonCoffeeWords = regexp.MustCompile(`(?i)\b(` + nonCoffeeTerms + `|tea\s*bags?|loose[\s-]*leaf|herbal\s*teas?|tisanes?|teas?\s*(blends?|leaves|sampler))\b`)

	teaLike = regexp.MustCompile(`(?i)\btea[\s-]*like\b`)

	// audience captures "<product> for <audience>" within one clause.
	audience = regexp.MustCompile(`(?i)([^,\n]*?)\bfor\s+[^,\n]*`)
)

// Classification is the verdict for one product. When Resolved is false the
// coffee flag should be left unset.
type Classification struct {
	Resolved   bool    `json:"resolved"`
	IsCoffee   bool    `json:"is_coffee"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
	Reasoning  string  `json:"reasoning"`
}

// Classifier runs the keyword tiers and the optional fallback.
type Classifier struct {
	fallback repository.ClassificationFallback
	logger   *zap.Logger
}

// New creates a classifier. fallback may be nil.
func New(fallback repository.ClassificationFallback, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{fallback: fallback, logger: logger.With(zap.String("component", "classifier"))}
}

type tier struct {
	method     Method
	confidence float64
	positive   string
	negative   string
	veto       *regexp.Regexp
}

// Classify decides whether product is coffee. It never returns an error:
// fallback failures come back as an unresolved classification.
func (c *Classifier) Classify(ctx context.Context, product *entity.Product, platform entity.Source) Classification {
	if product == nil {
		return Classification{Method: MethodUndetermined, Reasoning: "no product"}
	}

	description := product.DescriptionMD
	if description == "" {
		description = parser.HTMLToText(product.DescriptionHTML)
	}
	categories := append([]string{product.ProductType}, product.Categories...)
	for _, e := range categories {
		if coffeeEntry.MatchString(e) {
			return Classification{
				Resolved:   true,
				IsCoffee:   true,
				Confidence: categoryConfidence,
				Method:     MethodCategory,
				Reasoning:  fmt.Sprintf("category %q is coffee", strings.TrimSpace(e)),
			}
		}
	}
	category := strings.Join(categories, " , ")

	// Note tags describe flavour ("notes: black tea"), not the product.
	tagList := make([]string, 0, len(product.Tags))
	for _, t := range product.Tags {
		if !parser.IsNoteTag(t) {
			tagList = append(tagList, t)
		}
	}
	tags := strings.Join(tagList, " , ")

	tiers := []tier{
		{MethodCategory, categoryConfidence, category, vetoText(category), nonCoffeeWords},
		{MethodTags, tagsConfidence, tags, vetoText(tags), nonCoffeeWords},
		// Descriptions of coffee mention tea and chocolate as tasting notes,
		// so only the title can veto at this tier.
		{MethodKeywords, keywordConfidence, product.Title + " \n " + description, vetoText(product.Title), titleNonCoffeeWords},
	}
	for _, t := range tiers {
		if res, ok := decide(t); ok {
			return res
		}
	}

	if c.fallback == nil {
		return Classification{Method: MethodUndetermined, Reasoning: "no keyword matched"}
	}
	resp, err := c.fallback.Classify(ctx, &entity.ClassificationRequest{
		Platform:    platform,
		Title:       product.Title,
		ProductType: product.ProductType,
		Categories:  product.Categories,
		Tags:        product.Tags,
		Description: description,
	})
	if err != nil {
		c.logger.Warn("classification fallback unavailable",
			zap.String("platform_product_id", product.PlatformProductID.String()),
			zap.Error(err),
		)
		return Classification{Method: MethodUnavailable, Reasoning: err.Error()}
	}
	confidence := resp.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0
	}
	return Classification{
		Resolved:   true,
		IsCoffee:   resp.IsCoffee,
		Confidence: confidence,
		Method:     MethodFallback,
		Reasoning:  resp.Reasoning,
	}
}

// vetoText drops phrases that mention a non-coffee word without naming the
// product: flavour comparisons and the audience of a coffee ("coffee beans
// for brewers"). An audience clause is kept when nothing before "for" is
// coffee, so "cleaning tablets for espresso machines" still vetoes.
func vetoText(s string) string {
	s = teaLike.ReplaceAllString(s, " ")
	return audience.ReplaceAllStringFunc(s, func(clause string) string {
		m := audience.FindStringSubmatch(clause)
		if m != nil && coffeeWords.MatchString(m[1]) {
			return m[1]
		}
		return clause
	})
}

// decide applies one tier. A non-coffee keyword beats a coffee keyword.
func decide(t tier) (Classification, bool) {
	if m := t.veto.FindString(t.negative); m != "" {
		return Classification{
			Resolved:   true,
			IsCoffee:   false,
			Confidence: t.confidence,
			Method:     t.method,
			Reasoning:  fmt.Sprintf("%s mentions non-coffee keyword %q", t.method, m),
		}, true
	}
	if m := coffeeWords.FindString(t.positive); m != "" {
		return Classification{
			Resolved:   true,
			IsCoffee:   true,
			Confidence: t.confidence,
			Method:     t.method,
			Reasoning:  fmt.Sprintf("%s mentions coffee keyword %q", t.method, m),
		}, true
	}
	return Classification{}, false
}
