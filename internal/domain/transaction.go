package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel identities used when normalization cannot resolve a real value.
const (
	UnknownMerchant       = "Unknown Merchant"
	UncategorizedCategory = "Uncategorized"
)

// RawRecord is one untyped row extracted from a source file. Fields may be
// empty, whitespace-padded, or contain stray symbols and unicode.
type RawRecord struct {
	// Row is the caller-supplied row number for error attribution
	// (data rows start at 2 when a header row is present).
	Row      int    `json:"row"`
	Date     string `json:"date"`
	Merchant string `json:"merchant"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
}

// Transaction is a fully normalized transaction. Normalization sets every
// field except the three anomaly fields, which only the detector mutates.
type Transaction struct {
	ID string `json:"id"`

	Date             time.Time       `json:"date"`
	RawMerchantLabel string          `json:"merchantName"`
	Merchant         string          `json:"normalizedMerchant"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Category         string          `json:"category"`
	IsRefund         bool            `json:"isRefund"`

	// Anomaly annotation, set once by the detector per analysis run.
	IsAnomaly bool     `json:"isAnomaly"`
	Severity  Severity `json:"anomalySeverity"`
	Reason    string   `json:"anomalyReason,omitempty"`
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// NewTransaction validates and builds a Transaction. This is the single
// construction point that enforces the normalized-data invariants: amount at
// exactly two fractional digits, well-formed currency code, non-empty
// merchant and category, refund flag consistent with the amount sign.
func NewTransaction(date time.Time, rawMerchant, merchant string, amount decimal.Decimal, currency, category string, isRefund bool) (*Transaction, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	if strings.TrimSpace(merchant) == "" {
		return nil, fmt.Errorf("normalized merchant must not be empty")
	}
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("category must not be empty")
	}
	if !currencyPattern.MatchString(currency) {
		return nil, fmt.Errorf("currency %q is not a 3-letter uppercase code", currency)
	}
	if amount.Exponent() < -2 {
		return nil, fmt.Errorf("amount %s has more than two fractional digits", amount)
	}
	if isRefund != amount.IsNegative() {
		return nil, fmt.Errorf("refund flag %v inconsistent with amount %s", isRefund, amount)
	}

	return &Transaction{
		Date:             date,
		RawMerchantLabel: rawMerchant,
		Merchant:         merchant,
		Amount:           amount.Round(2),
		Currency:         currency,
		Category:         category,
		IsRefund:         isRefund,
		Severity:         SeverityNone,
	}, nil
}

// Day returns the calendar date component, used for per-day groupings.
func (t *Transaction) Day() string {
	return t.Date.Format("2006-01-02")
}

// Flag sets the anomaly annotation. The first flag wins; signals run in
// priority order, so an already-flagged transaction keeps its annotation.
func (t *Transaction) Flag(sev Severity, reason string) bool {
	if t.IsAnomaly {
		return false
	}
	t.IsAnomaly = true
	t.Severity = sev
	t.Reason = reason
	return true
}

// ClearFlags resets the anomaly annotation before a new analysis run.
func (t *Transaction) ClearFlags() {
	t.IsAnomaly = false
	t.Severity = SeverityNone
	t.Reason = ""
}

// RowFailure reports a single unparseable input row. The batch continues
// past it; failures accumulate alongside the success count.
type RowFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (f RowFailure) String() string {
	return fmt.Sprintf("row %d: %s", f.Row, f.Reason)
}
