// Package anomaly implements the batch anomaly detection engine. Five
// independent signals score the fully normalized batch; each transaction
// keeps at most one (severity, reason) annotation from the highest-priority
// signal that fired.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Detector runs the detection signals over one materialized batch. The
// whole batch must be present before analysis: batch-level statistics
// (mean, per-day groupings) have no streaming form.
type Detector struct {
	cfg   domain.DetectorConfig
	tally *domain.AnomalyTally
}

// NewDetector creates a detector with the given policy.
func NewDetector(cfg domain.DetectorConfig) *Detector {
	return &Detector{
		cfg:   cfg,
		tally: domain.NewAnomalyTally(),
	}
}

// Tally returns the counts from the most recent Analyze call.
func (d *Detector) Tally() *domain.AnomalyTally {
	return d.tally
}

// Analyze annotates the batch in place and returns the per-run tally.
// Signals run in priority order (outlier > large amount > duplicate >
// velocity > diversity); a transaction already flagged by an earlier signal
// is never overwritten. Degenerate statistics (zero variance, undersized
// batch, single day) silently disable only the dependent signal. An empty
// batch is a caller contract violation and returns ErrEmptyBatch.
func (d *Detector) Analyze(batch []*domain.Transaction) (*domain.AnomalyTally, error) {
	if len(batch) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	d.tally = domain.NewAnomalyTally()
	for _, tx := range batch {
		tx.ClearFlags()
	}

	stats := computeStats(batch)

	d.detectOutliers(batch, stats)
	d.detectLargeAmounts(batch, stats)
	d.detectDuplicates(batch)
	d.detectVelocity(batch, stats)
	d.detectDiversity(batch)

	return d.tally, nil
}

// flag annotates a transaction if no higher-priority signal got there
// first, and records it in the tally.
func (d *Detector) flag(tx *domain.Transaction, signal string, sev domain.Severity, reason string) {
	if tx.Flag(sev, reason) {
		d.tally.Record(signal, sev)
	}
}

// batchStats holds the per-run derived statistics. Lifetime is one
// Analyze call; nothing here is persisted.
type batchStats struct {
	mean    float64 // mean of signed amounts
	stddev  float64 // population standard deviation of signed amounts
	meanAbs float64 // mean of absolute amounts
}

func computeStats(batch []*domain.Transaction) batchStats {
	n := float64(len(batch))

	var sum, sumAbs float64
	for _, tx := range batch {
		amt := tx.Amount.InexactFloat64()
		sum += amt
		sumAbs += math.Abs(amt)
	}
	mean := sum / n

	var sqDiff float64
	for _, tx := range batch {
		diff := tx.Amount.InexactFloat64() - mean
		sqDiff += diff * diff
	}

	return batchStats{
		mean:    mean,
		stddev:  math.Sqrt(sqDiff / n),
		meanAbs: sumAbs / n,
	}
}

// detectOutliers flags amounts by |z| relative to the base threshold T:
// >= 2T CRITICAL, >= 1.5T HIGH, >= T MEDIUM. Zero variance disables the
// signal entirely.
func (d *Detector) detectOutliers(batch []*domain.Transaction, stats batchStats) {
	if stats.stddev == 0 {
		return
	}

	base := d.cfg.ZScoreThreshold
	for _, tx := range batch {
		z := math.Abs((tx.Amount.InexactFloat64() - stats.mean) / stats.stddev)

		var sev domain.Severity
		switch {
		case z >= 2*base:
			sev = domain.SeverityCritical
		case z >= 1.5*base:
			sev = domain.SeverityHigh
		case z >= base:
			sev = domain.SeverityMedium
		default:
			continue
		}

		reason := fmt.Sprintf("statistical outlier: amount %s is %.1f standard deviations from the batch mean", tx.Amount, z)
		d.flag(tx, domain.SignalOutlier, sev, reason)
	}
}

// detectLargeAmounts applies absolute-amount tiers. The tiers adapt to
// dataset scale: a batch whose average amount exceeds the enterprise cutoff
// uses the enterprise tiers, because a $10K transaction is unremarkable in
// a wire-transfer dataset and anomalous in a retail-card one.
func (d *Detector) detectLargeAmounts(batch []*domain.Transaction, stats batchStats) {
	tiers := d.cfg.RetailTiers
	scale := "normal"
	if stats.meanAbs > d.cfg.EnterpriseAvgAmount {
		tiers = d.cfg.EnterpriseTiers
		scale = "enterprise"
	}

	for _, tx := range batch {
		amt := math.Abs(tx.Amount.InexactFloat64())

		var sev domain.Severity
		switch {
		case amt >= tiers.Critical:
			sev = domain.SeverityCritical
		case amt >= tiers.High:
			sev = domain.SeverityHigh
		case amt >= tiers.Medium:
			sev = domain.SeverityMedium
		default:
			continue
		}

		reason := fmt.Sprintf("large transaction: amount %s is outside your normal spending range (%s scale)", tx.Amount, scale)
		d.flag(tx, domain.SignalLarge, sev, reason)
	}
}

// detectDuplicates groups by (merchant, amount, calendar date). The first
// occurrence in original batch order is never flagged; every later
// occurrence in the same group is.
func (d *Detector) detectDuplicates(batch []*domain.Transaction) {
	seen := make(map[string]int)
	for _, tx := range batch {
		key := tx.Merchant + "|" + tx.Amount.String() + "|" + tx.Day()
		seen[key]++
		if seen[key] > 1 {
			reason := fmt.Sprintf("duplicate transaction: %s for %s charged %d times on %s", tx.Merchant, tx.Amount, seen[key], tx.Day())
			d.flag(tx, domain.SignalDuplicate, domain.SeverityMedium, reason)
		}
	}
}

// detectVelocity looks for time-ordered clusters whose summed spend
// exceeds a multiple of a typical single transaction within the policy
// window. Too few transactions is statistically meaningless, so the signal
// does not engage below the minimum batch size.
func (d *Detector) detectVelocity(batch []*domain.Transaction, stats batchStats) {
	if len(batch) < d.cfg.MinBatchSize {
		return
	}

	window := time.Duration(d.cfg.VelocityWindowHours) * time.Hour
	threshold := d.cfg.VelocityFactor * stats.meanAbs
	if threshold <= 0 {
		return
	}

	ordered := make([]*domain.Transaction, len(batch))
	copy(ordered, batch)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	for i := 0; i < len(ordered); i++ {
		j := i
		var sum float64
		for j < len(ordered) && ordered[j].Date.Sub(ordered[i].Date) <= window {
			sum += math.Abs(ordered[j].Amount.InexactFloat64())
			j++
		}

		count := j - i
		if count < d.cfg.VelocityMinCluster || sum <= threshold {
			continue
		}

		sev := domain.SeverityLow
		if sum >= 2*threshold {
			sev = domain.SeverityMedium
		}
		reason := fmt.Sprintf("rapid spending: %d transactions totaling %.2f within %dh", count, sum, d.cfg.VelocityWindowHours)
		for _, tx := range ordered[i:j] {
			d.flag(tx, domain.SignalVelocity, sev, reason)
		}
	}
}

// detectDiversity flags days whose distinct-merchant count substantially
// exceeds the batch's typical per-day diversity. Needs at least two
// distinct days for a baseline.
func (d *Detector) detectDiversity(batch []*domain.Transaction) {
	merchantsByDay := make(map[string]map[string]bool)
	for _, tx := range batch {
		day := tx.Day()
		if merchantsByDay[day] == nil {
			merchantsByDay[day] = make(map[string]bool)
		}
		merchantsByDay[day][tx.Merchant] = true
	}

	if len(merchantsByDay) < 2 {
		return
	}

	counts := make([]int, 0, len(merchantsByDay))
	for _, merchants := range merchantsByDay {
		counts = append(counts, len(merchants))
	}
	baseline := medianInt(counts)
	if baseline <= 0 {
		return
	}

	trigger := d.cfg.DiversityFactor * baseline
	for day, merchants := range merchantsByDay {
		count := len(merchants)
		if float64(count) < trigger || count < d.cfg.DiversityMinMerchants {
			continue
		}

		sev := domain.SeverityLow
		if float64(count) >= 2*trigger {
			sev = domain.SeverityMedium
		}
		reason := fmt.Sprintf("unusual merchant diversity: %d distinct merchants on %s (typical day: %.0f)", count, day, baseline)
		for _, tx := range batch {
			if tx.Day() == day {
				d.flag(tx, domain.SignalDiversity, sev, reason)
			}
		}
	}
}

func medianInt(values []int) float64 {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
