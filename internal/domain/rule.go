package domain

// WatchRuleConfig defines an operator-supplied watch rule. Watch rules run
// after the built-in detection signals and annotate otherwise-unflagged
// transactions at INFO severity; they never overwrite a built-in flag.
type WatchRuleConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// CEL expression over the normalized transaction. Must return bool.
	// Available variables: amount (double), merchant (string),
	// category (string), currency (string), is_refund (bool).
	Expression string `json:"expression"`

	// Reason attached to transactions the rule matches.
	Reason string `json:"reason"`

	// Whether the rule is active.
	Enabled bool `json:"enabled"`
}

// WatchRuleResult is the outcome of evaluating one watch rule against one
// transaction.
type WatchRuleResult struct {
	RuleID  string `json:"ruleId"`
	Matched bool   `json:"matched"`
	Reason  string `json:"reason,omitempty"`
	Err     string `json:"error,omitempty"`
}
