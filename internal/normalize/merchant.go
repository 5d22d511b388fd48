package normalize

import (
	"strings"
	"unicode"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// MerchantNormalizer resolves free-form merchant labels to stable canonical
// identities. The alias table is compiled once at construction into an
// exact-match index plus an ordered substring list; it is read-only after
// that, so a single normalizer is safe for any number of concurrent calls.
type MerchantNormalizer struct {
	exact      map[string]string
	substrings []substringAlias
}

type substringAlias struct {
	pattern   string
	canonical string
}

// NewMerchantNormalizer builds a normalizer from the static alias table.
// When keepSubBrands is false, delivery sub-brands fold into their parent
// brand ("Uber Eats" -> "Uber"); the grouping granularity is policy.
func NewMerchantNormalizer(keepSubBrands bool) *MerchantNormalizer {
	n := &MerchantNormalizer{
		exact: make(map[string]string),
	}

	for _, entry := range merchantAliases {
		canonical := entry.Canonical
		if !keepSubBrands && entry.Parent != "" {
			canonical = entry.Parent
		}
		for _, p := range entry.Patterns {
			if _, dup := n.exact[p]; !dup {
				n.exact[p] = canonical
			}
			// Short patterns are too noisy for containment matching.
			if len(p) >= 4 {
				n.substrings = append(n.substrings, substringAlias{pattern: p, canonical: canonical})
			}
		}
	}

	return n
}

// Normalize canonicalizes a free-form merchant label. Empty input maps to
// the Unknown Merchant sentinel; labels with no alias match become their own
// cleaned, title-cased canonical identity. Deterministic: same input, same
// output, no external lookups.
func (n *MerchantNormalizer) Normalize(text string) string {
	cleaned := cleanMerchant(text)
	if cleaned == "" {
		return domain.UnknownMerchant
	}

	if canonical, ok := n.exact[cleaned]; ok {
		return canonical
	}

	for _, alias := range n.substrings {
		if strings.Contains(cleaned, alias.pattern) {
			return alias.canonical
		}
		if len(cleaned) >= 4 && strings.Contains(alias.pattern, cleaned) {
			return alias.canonical
		}
	}

	return titleCase(cleaned)
}

// cleanMerchant lowercases the label and strips transaction-processor
// noise: separators, unicode punctuation and emoji, and trailing
// transaction-id tokens. Letter content, including accented characters,
// is preserved.
func cleanMerchant(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}

	// Processor separators become spaces; '#' and '*' introduce ids.
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '/' || r == '-' || r == '_' || r == '#' || r == '*':
			return ' '
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '\'' || r == '&':
			return r
		default:
			return -1
		}
	}, s)

	fields := strings.Fields(s)

	// Drop trailing id-like tokens ("#4512", "2X3Y4Z", store numbers).
	for len(fields) > 1 && isIDToken(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}

	return strings.Join(fields, " ")
}

// isIDToken reports whether a token looks like a transaction or store id:
// it contains at least one digit.
func isIDToken(tok string) bool {
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// titleCase capitalizes the first letter of each word, leaving the rest of
// the word untouched so accented content survives.
func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		runes := []rune(f)
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}
