package normalize

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparseableAmount is returned when the input does not reduce to a
// clean numeric literal. Narrative text mixed with a number fails rather
// than guessing; amounts are never extracted out of free prose.
var ErrUnparseableAmount = errors.New("unparseable amount")

// symbolCurrencies maps currency symbol prefixes to ISO 4217 codes.
var symbolCurrencies = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

var (
	isoCodePrefix = regexp.MustCompile(`^([A-Za-z]{3})\b`)
	isoCodeSuffix = regexp.MustCompile(`\b([A-Za-z]{3})$`)
	numericValue  = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?$`)
)

// NormalizeAmount parses a free-form money string into an exact two-decimal
// magnitude, a 3-letter currency code, and a sign flag. Unknown or absent
// currency indicators default to USD. Sign detection priority: parentheses,
// leading minus, trailing minus; the marker may sit on either side of the
// currency indicator ("-$45.99" and "$-45.99" both parse), but at most one
// marker is accepted per input. The returned decimal carries the sign.
func NormalizeAmount(text string) (decimal.Decimal, string, bool, error) {
	currency := "USD"

	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, currency, false, ErrUnparseableAmount
	}

	s, negative := stripSign(s)

	// Currency indicators: symbol prefix or a leading/trailing ISO token.
	for sym, code := range symbolCurrencies {
		if strings.HasPrefix(s, sym) {
			currency = code
			s = strings.TrimSpace(strings.TrimPrefix(s, sym))
			break
		}
	}
	if m := isoCodeSuffix.FindStringSubmatch(s); m != nil && !numericValue.MatchString(s) {
		currency = strings.ToUpper(m[1])
		s = strings.TrimSpace(strings.TrimSuffix(s, m[0]))
	} else if m := isoCodePrefix.FindStringSubmatch(s); m != nil {
		currency = strings.ToUpper(m[1])
		s = strings.TrimSpace(strings.TrimPrefix(s, m[0]))
	}

	// A sign marker inside the currency indicator ("$-45.99"). A second
	// marker when one was already consumed falls through to the numeric
	// gate and fails there.
	if !negative {
		s, negative = stripSign(s)
	}

	// Thousands separators and inner whitespace.
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	// The residue must be a clean numeric literal.
	if !numericValue.MatchString(s) {
		return decimal.Zero, currency, false, ErrUnparseableAmount
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, currency, false, ErrUnparseableAmount
	}
	amount = amount.Round(2)
	if negative {
		amount = amount.Neg()
	}

	return amount, currency, negative, nil
}

// stripSign removes one sign marker, in priority order: parentheses,
// leading minus, trailing minus.
func stripSign(s string) (string, bool) {
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		return strings.TrimSpace(s[1 : len(s)-1]), true
	case strings.HasPrefix(s, "-"):
		return strings.TrimSpace(s[1:]), true
	case strings.HasSuffix(s, "-"):
		return strings.TrimSpace(s[:len(s)-1]), true
	}
	return s, false
}
