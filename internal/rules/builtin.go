package rules

import "github.com/opensource-finance/kestrel/internal/domain"

// BuiltinRules returns the default watch rule set loaded at startup.
// Operators replace or extend these through the rules API.
func BuiltinRules() []*domain.WatchRuleConfig {
	return []*domain.WatchRuleConfig{
		{
			ID:          "watch-foreign-currency",
			Name:        "Foreign Currency Charge",
			Description: "Surfaces charges settled in a currency other than USD",
			Expression:  `currency != "USD"`,
			Reason:      "charge settled in a foreign currency",
			Enabled:     true,
		},
		{
			ID:          "watch-large-refund",
			Name:        "Large Refund",
			Description: "Surfaces refunds above 500",
			Expression:  "is_refund && amount < -500.0",
			Reason:      "refund above the review threshold",
			Enabled:     true,
		},
		{
			ID:          "watch-unknown-merchant",
			Name:        "Unresolved Merchant",
			Description: "Surfaces transactions whose merchant could not be resolved",
			Expression:  `merchant == "Unknown Merchant"`,
			Reason:      "merchant could not be resolved",
			Enabled:     true,
		},
	}
}
