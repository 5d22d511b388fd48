package normalize

import (
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// CategoryInferencer maps canonical merchant identities to spending
// categories via the static keyword table. Explicit categories always win
// over inference.
type CategoryInferencer struct {
	table []categoryKeywords
}

// NewCategoryInferencer builds an inferencer over the static keyword table.
func NewCategoryInferencer() *CategoryInferencer {
	return &CategoryInferencer{table: categoryTable}
}

// Infer returns the category for a canonical merchant identity. A non-empty
// explicit category is preserved verbatim and never overwritten. Otherwise
// the keyword sets are tested case-insensitively in their fixed priority
// order and the first match wins; merchants matching multiple categories
// (an "amazon aws" label matches both Technology and Shopping) resolve by
// that order. No match yields the Uncategorized sentinel.
func (c *CategoryInferencer) Infer(canonicalMerchant, explicitCategory string) string {
	if explicit := strings.TrimSpace(explicitCategory); explicit != "" {
		return explicit
	}

	merchant := strings.ToLower(canonicalMerchant)
	for _, entry := range c.table {
		for _, kw := range entry.Keywords {
			if strings.Contains(merchant, kw) {
				return entry.Category
			}
		}
	}

	return domain.UncategorizedCategory
}
