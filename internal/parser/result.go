// Package parser contains the heuristic attribute parsers that turn free
// listing text into typed values. Every parser is stateless, evaluates ordered
// pattern tables, attaches a confidence score and a provenance tag to its
// answer, and never panics or returns an error to its caller.
package parser

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// Source is the provenance tag of a parse result.
type Source string

const (
	SourceTitle          Source = "from-title"
	SourceOption         Source = "from-option"
	SourceAttribute      Source = "from-attribute"
	SourceFallbackMethod Source = "from-fallback-method"
	SourceGrams          Source = "from-grams"
	SourceWeightField    Source = "from-weight-field"
	SourceDescription    Source = "from-description"
	SourceTags           Source = "from-tags"
	SourceNormalization  Source = "from-normalization"
	SourceDefault        Source = "from-default"
	SourceNoMatch        Source = "no-match"
	SourceError          Source = "error"
)

// fallbackFactor scales the confidence of a match from a fallback table.
const fallbackFactor = 0.7

// ErrConfidenceRange is returned when a result is built with a confidence
// outside [0, 1].
var ErrConfidenceRange = errors.New("confidence must be within [0, 1]")

// Result is the shared output shape of every parser.
type Result[T any] struct {
	Value        T        `json:"value"`
	Confidence   float64  `json:"confidence"`
	Source       Source   `json:"source"`
	Warnings     []string `json:"warnings,omitempty"`
	OriginalText string   `json:"original_text,omitempty"`
}

// NewResult builds a Result, rejecting out-of-range confidence values.
func NewResult[T any](value T, confidence float64, source Source, original string, warnings ...string) (Result[T], error) {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Result[T]{}, fmt.Errorf("%w: got %v", ErrConfidenceRange, confidence)
	}
	return Result[T]{
		Value:        value,
		Confidence:   confidence,
		Source:       source,
		Warnings:     warnings,
		OriginalText: original,
	}, nil
}

// Matched reports whether the result came from an actual match rather than
// a default, a miss or an error.
func (r Result[T]) Matched() bool {
	switch r.Source {
	case SourceNoMatch, SourceError, SourceDefault, "":
		return false
	}
	return true
}

// scored builds a result from internal constants. Confidence products can
// drift by a few ulps, so they are rounded and clamped rather than rejected.
func scored[T any](value T, confidence float64, source Source, original string, warnings ...string) Result[T] {
	confidence = math.Round(confidence*1000) / 1000
	confidence = math.Max(0, math.Min(1, confidence))
	r, _ := NewResult(value, confidence, source, original, warnings...)
	return r
}

func noMatch[T any](value T, original, warning string) Result[T] {
	return Result[T]{Value: value, Source: SourceNoMatch, Warnings: []string{warning}, OriginalText: original}
}

func failed[T any](value T, original, warning string) Result[T] {
	return Result[T]{Value: value, Source: SourceError, Warnings: []string{warning}, OriginalText: original}
}

// safely runs fn, turning malformed input and panics into an error result.
func safely[T any](zero T, original string, fn func() Result[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(zero, original, fmt.Sprintf("parser panic: %v", r))
		}
	}()
	if !utf8.ValidString(original) {
		return failed(zero, original, "malformed input: invalid UTF-8")
	}
	return fn()
}
