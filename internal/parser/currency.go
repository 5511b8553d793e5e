package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when neither the variant nor the caller supplies one.
const DefaultCurrency = "USD"

// currencyAliases folds symbols and local spellings onto ISO 4217 codes.
var currencyAliases = map[string]string{
	"$":      "USD",
	"us$":    "USD",
	"usd":    "USD",
	"us":     "USD",
	"dollar": "USD",
	"rs":     "INR",
	"rs.":    "INR",
	"₹":      "INR",
	"inr":    "INR",
	"rupee":  "INR",
	"€":      "EUR",
	"eur":    "EUR",
	"euro":   "EUR",
	"£":      "GBP",
	"gbp":    "GBP",
	"a$":     "AUD",
	"aud":    "AUD",
	"c$":     "CAD",
	"cad":    "CAD",
	"nz$":    "NZD",
	"nzd":    "NZD",
	"¥":      "JPY",
	"jpy":    "JPY",
	"s$":     "SGD",
	"sgd":    "SGD",
	"chf":    "CHF",
	"sek":    "SEK",
	"nok":    "NOK",
	"dkk":    "DKK",
	"aed":    "AED",
}

// NormalizeCurrency folds a currency code case-insensitively. Unknown codes
// are upper-cased and passed through; an empty code yields fallback, or USD
// when fallback is empty too. Normalizing an already normalized code is a
// no-op.
func NormalizeCurrency(code, fallback string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" {
		if strings.TrimSpace(fallback) == "" {
			return DefaultCurrency
		}
		return NormalizeCurrency(fallback, DefaultCurrency)
	}
	if iso, ok := currencyAliases[c]; ok {
		return iso
	}
	return strings.ToUpper(c)
}

var priceNoise = regexp.MustCompile(`[^\d.,\-]`)

// ErrBadPrice is returned by ParsePrice for strings without a number.
var ErrBadPrice = errors.New("price is not a decimal number")

// ParsePrice parses a storefront price string such as "25.99", "1,299.00",
// "Rs. 450" or "12,50". Currency symbols and spaces are ignored.
func ParsePrice(s string) (decimal.Decimal, error) {
	clean := strings.Trim(priceNoise.ReplaceAllString(s, ""), ".,")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadPrice, s)
	}
	if strings.Contains(clean, ",") {
		if strings.Contains(clean, ".") {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = normalizeDecimal(clean)
		}
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadPrice, s)
	}
	return d, nil
}
