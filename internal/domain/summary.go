package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEmptyBatch is returned when analysis or reporting is requested for an
// empty batch. Callers must check for it; there is no partial-results mode.
var ErrEmptyBatch = errors.New("empty batch: no summary available")

// Detection signal identifiers, in priority order (highest first).
const (
	SignalOutlier   = "statistical_outlier"
	SignalLarge     = "large_transaction"
	SignalDuplicate = "duplicate"
	SignalVelocity  = "velocity"
	SignalDiversity = "merchant_diversity"
	SignalWatchRule = "watch_rule"
)

// AnomalyTally counts anomalies per detection signal and per severity for
// one analysis run. It is overwritten at the start of every run.
type AnomalyTally struct {
	Total      int            `json:"total"`
	BySignal   map[string]int `json:"bySignal"`
	BySeverity map[string]int `json:"bySeverity"`
}

// NewAnomalyTally returns an empty tally.
func NewAnomalyTally() *AnomalyTally {
	return &AnomalyTally{
		BySignal:   make(map[string]int),
		BySeverity: make(map[string]int),
	}
}

// Record counts one flagged transaction.
func (t *AnomalyTally) Record(signal string, sev Severity) {
	t.Total++
	t.BySignal[signal]++
	t.BySeverity[sev.String()]++
}

// Count returns the tally for a severity tier.
func (t *AnomalyTally) Count(sev Severity) int {
	return t.BySeverity[sev.String()]
}

// Summary is the batch analysis summary.
type Summary struct {
	TotalTransactions int             `json:"totalTransactions"`
	DateFrom          time.Time       `json:"dateFrom"`
	DateTo            time.Time       `json:"dateTo"`
	TotalSpending     decimal.Decimal `json:"totalSpending"`
	TotalRefunds      decimal.Decimal `json:"totalRefunds"`
	NetSpending       decimal.Decimal `json:"netSpending"`
	TopCategory       string          `json:"topCategory"`
	TopCategorySpend  decimal.Decimal `json:"topCategorySpending"`
	AnomaliesDetected int             `json:"anomaliesDetected"`
}

// Risk levels, ordered MINIMAL < LOW < MEDIUM < HIGH.
const (
	RiskMinimal = "MINIMAL"
	RiskLow     = "LOW"
	RiskMedium  = "MEDIUM"
	RiskHigh    = "HIGH"
)

// RiskAssessment is the single-batch risk reduction.
type RiskAssessment struct {
	RiskScore      float64  `json:"riskScore"` // 0..100
	RiskLevel      string   `json:"riskLevel"`
	RiskFactors    []string `json:"riskFactors"`
	AnomalyRate    float64  `json:"anomalyRate"` // flagged / total
	TotalAnomalies int      `json:"totalAnomalies"`
}
