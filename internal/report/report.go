// Package report reduces an analyzed batch to summary statistics and a
// plain-text report for operators.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/shopspring/decimal"
)

// Summarize computes the batch summary. Spending totals come from positive
// amounts, refund totals from the magnitude of negative amounts; the net is
// their difference. The top category ranks by spending only, refunds never
// promote a category.
func Summarize(batch []*domain.Transaction, tally *domain.AnomalyTally) (*domain.Summary, error) {
	if len(batch) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	summary := &domain.Summary{
		TotalTransactions: len(batch),
		DateFrom:          batch[0].Date,
		DateTo:            batch[0].Date,
	}

	byCategory := make(map[string]decimal.Decimal)
	for _, tx := range batch {
		if tx.Date.Before(summary.DateFrom) {
			summary.DateFrom = tx.Date
		}
		if tx.Date.After(summary.DateTo) {
			summary.DateTo = tx.Date
		}

		if tx.Amount.IsNegative() {
			summary.TotalRefunds = summary.TotalRefunds.Add(tx.Amount.Abs())
			continue
		}
		summary.TotalSpending = summary.TotalSpending.Add(tx.Amount)
		byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
	}
	summary.NetSpending = summary.TotalSpending.Sub(summary.TotalRefunds)

	for category, spend := range byCategory {
		if spend.GreaterThan(summary.TopCategorySpend) ||
			(spend.Equal(summary.TopCategorySpend) && category < summary.TopCategory) {
			summary.TopCategory = category
			summary.TopCategorySpend = spend
		}
	}

	if tally != nil {
		summary.AnomaliesDetected = tally.Total
	}

	return summary, nil
}

// breakdown is one named spending bucket.
type breakdown struct {
	Name  string
	Spend decimal.Decimal
	Count int
}

// spendingBy buckets positive amounts by the given key, sorted by spend
// descending with name as the tiebreaker.
func spendingBy(batch []*domain.Transaction, key func(*domain.Transaction) string) []breakdown {
	buckets := make(map[string]*breakdown)
	for _, tx := range batch {
		if tx.Amount.IsNegative() {
			continue
		}
		name := key(tx)
		b, ok := buckets[name]
		if !ok {
			b = &breakdown{Name: name}
			buckets[name] = b
		}
		b.Spend = b.Spend.Add(tx.Amount)
		b.Count++
	}

	out := make([]breakdown, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Spend.Equal(out[j].Spend) {
			return out[i].Spend.GreaterThan(out[j].Spend)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Render produces the operator-facing text report for one analyzed batch.
// Sections always appear in the same order; empty sections are stated, not
// omitted, so reports are comparable across runs.
func Render(batch []*domain.Transaction, failures []domain.RowFailure, summary *domain.Summary, risk *domain.RiskAssessment) string {
	var b strings.Builder

	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "%s\nTRANSACTION ANALYSIS REPORT\n%s\n\n", rule, rule)

	b.WriteString("TRANSACTION SUMMARY\n")
	fmt.Fprintf(&b, "  Transactions:   %d\n", summary.TotalTransactions)
	fmt.Fprintf(&b, "  Date range:     %s to %s\n", summary.DateFrom.Format("2006-01-02"), summary.DateTo.Format("2006-01-02"))
	fmt.Fprintf(&b, "  Total spending: %s\n", summary.TotalSpending.StringFixed(2))
	fmt.Fprintf(&b, "  Total refunds:  %s\n", summary.TotalRefunds.StringFixed(2))
	fmt.Fprintf(&b, "  Net spending:   %s\n", summary.NetSpending.StringFixed(2))
	if summary.TopCategory != "" {
		fmt.Fprintf(&b, "  Top category:   %s (%s)\n", summary.TopCategory, summary.TopCategorySpend.StringFixed(2))
	}
	b.WriteString("\n")

	b.WriteString("SPENDING BY CATEGORY\n")
	categories := spendingBy(batch, func(tx *domain.Transaction) string { return tx.Category })
	if len(categories) == 0 {
		b.WriteString("  (no spending)\n")
	}
	for _, c := range categories {
		fmt.Fprintf(&b, "  %-24s %12s  (%d transactions)\n", c.Name, c.Spend.StringFixed(2), c.Count)
	}
	b.WriteString("\n")

	b.WriteString("TOP MERCHANTS\n")
	merchants := spendingBy(batch, func(tx *domain.Transaction) string { return tx.Merchant })
	if len(merchants) > 10 {
		merchants = merchants[:10]
	}
	if len(merchants) == 0 {
		b.WriteString("  (no spending)\n")
	}
	for _, m := range merchants {
		fmt.Fprintf(&b, "  %-24s %12s  (%d transactions)\n", m.Name, m.Spend.StringFixed(2), m.Count)
	}
	b.WriteString("\n")

	b.WriteString("ANOMALIES\n")
	anomalies := 0
	for _, tx := range batch {
		if !tx.IsAnomaly {
			continue
		}
		anomalies++
		fmt.Fprintf(&b, "  [%s] %s  %s %s: %s\n",
			tx.Severity, tx.Day(), tx.Merchant, tx.Amount.StringFixed(2), tx.Reason)
	}
	if anomalies == 0 {
		b.WriteString("  No anomalies detected.\n")
	}
	b.WriteString("\n")

	if risk != nil {
		b.WriteString("RISK ASSESSMENT\n")
		fmt.Fprintf(&b, "  Score: %.1f/100 (%s)\n", risk.RiskScore, risk.RiskLevel)
		fmt.Fprintf(&b, "  Anomaly rate: %.1f%%\n", risk.AnomalyRate*100)
		for _, factor := range risk.RiskFactors {
			fmt.Fprintf(&b, "  - %s\n", factor)
		}
		b.WriteString("\n")
	}

	if len(failures) > 0 {
		b.WriteString("REJECTED ROWS\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "  %s\n", f)
		}
		b.WriteString("\n")
	}

	return b.String()
}
