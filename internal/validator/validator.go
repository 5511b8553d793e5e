// Package validator checks raw artifact documents against the canonical
// schema. The top level is strict and nested sections are lenient. Errors
// come back as structured values; the validator itself never fails and
// keeps no state.
package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/parser"
)

// priceTolerance is the largest accepted gap between price and price_decimal.
const priceTolerance = 0.005

// Outcome is the result of validating one raw document.
type Outcome struct {
	IsValid    bool                `json:"is_valid"`
	Artifact   *entity.Artifact    `json:"-"`
	Errors     []entity.FieldError `json:"errors"`
	Warnings   []string            `json:"warnings,omitempty"`
	ArtifactID string              `json:"artifact_id"`
}

// Validator validates raw artifacts. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the schema rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	registerRules(v)
	return &Validator{validate: v}
}

// Validate runs all three phases over raw: structural decoding, field rules,
// and derivation of lenient values. The outcome always carries an artifact id.
func (v *Validator) Validate(raw []byte) Outcome {
	out := Outcome{Errors: []entity.FieldError{}}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		out.ArtifactID = ArtifactID(nil)
		msg := "document is not a JSON object"
		if err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		out.Errors = append(out.Errors, entity.FieldError{
			Category: entity.CategoryTypeMismatch,
			Path:     "$",
			Message:  msg,
		})
		return out
	}
	out.ArtifactID = ArtifactID(doc)

	d := &decoder{}
	artifact := d.decodeArtifact(doc)
	out.Errors = append(out.Errors, d.errs...)

	reported := make([]string, 0, len(d.errs))
	for _, e := range d.errs {
		reported = append(reported, e.Path)
	}
	if err := v.validate.Struct(artifact); err != nil {
		for _, fe := range translate(err) {
			if !covered(fe.Path, reported) {
				out.Errors = append(out.Errors, fe)
			}
		}
	}

	if len(out.Errors) > 0 {
		return out
	}

	out.Warnings = derivePrices(artifact.Product)
	out.IsValid = true
	out.Artifact = artifact
	return out
}

// covered reports whether path is, or sits under, a path that the decoding
// phase already reported.
func covered(path string, reported []string) bool {
	for _, r := range reported {
		if path == r || strings.HasPrefix(path, r+".") || strings.HasPrefix(path, r+"[") {
			return true
		}
	}
	return false
}

// derivePrices fills price_decimal from price and flags disagreements.
func derivePrices(p *entity.Product) []string {
	var warnings []string
	for i := range p.Variants {
		variant := &p.Variants[i]
		d, err := parser.ParsePrice(variant.Price)
		if err != nil {
			continue
		}
		f, _ := d.Float64()
		if variant.PriceDecimal == nil {
			variant.PriceDecimal = &f
			continue
		}
		if math.Abs(*variant.PriceDecimal-f) > priceTolerance {
			warnings = append(warnings, fmt.Sprintf(
				"product.variants[%d].price_decimal %v disagrees with price %q", i, *variant.PriceDecimal, variant.Price))
		}
	}
	return warnings
}

// ArtifactID derives the traceable id of a raw document: audit.artifact_id,
// then collector_meta.job_id, then "{source}_{roaster_domain}_{scraped_at}".
// Missing parts of the synthesized id read "unknown".
func ArtifactID(doc map[string]json.RawMessage) string {
	if id := nestedString(doc, "audit", "artifact_id"); id != "" {
		return id
	}
	if id := nestedString(doc, "collector_meta", "job_id"); id != "" {
		return id
	}
	return strings.Join([]string{
		stringOr(doc["source"], "unknown"),
		stringOr(doc["roaster_domain"], "unknown"),
		stringOr(doc["scraped_at"], "unknown"),
	}, "_")
}

func nestedString(doc map[string]json.RawMessage, section, key string) string {
	raw, ok := doc[section]
	if !ok {
		return ""
	}
	fields, err := rawObject(raw)
	if err != nil {
		return ""
	}
	return stringOr(fields[key], "")
}

func stringOr(raw json.RawMessage, fallback string) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}
