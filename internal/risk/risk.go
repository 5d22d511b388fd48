// Package risk reduces a batch's anomaly tally to a single risk
// score, level, and factor list.
package risk

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Assessor aggregates per-batch anomaly statistics into a risk assessment.
type Assessor struct {
	cfg domain.RiskConfig
}

// NewAssessor creates an assessor with the given scoring policy.
func NewAssessor(cfg domain.RiskConfig) *Assessor {
	return &Assessor{cfg: cfg}
}

// Assess computes the risk assessment for one analyzed batch. The score is
// a weighted combination of the anomaly rate and the severity mix, clamped
// to [0,100]; it is monotonic in the anomaly rate when the severity mix is
// held fixed. The level breakpoints and weights are policy constants from
// RiskConfig. An empty batch is a caller contract violation.
func (a *Assessor) Assess(total int, tally *domain.AnomalyTally) (*domain.RiskAssessment, error) {
	if total == 0 {
		return nil, domain.ErrEmptyBatch
	}

	rate := float64(tally.Total) / float64(total)

	critical := tally.Count(domain.SeverityCritical)
	high := tally.Count(domain.SeverityHigh)
	medium := tally.Count(domain.SeverityMedium)
	low := tally.Count(domain.SeverityLow)

	score := rate*a.cfg.RateWeight +
		float64(critical)*a.cfg.CriticalWeight +
		float64(high)*a.cfg.HighWeight +
		float64(medium)*a.cfg.MediumWeight +
		float64(low)*a.cfg.LowWeight
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	level := domain.RiskMinimal
	switch {
	case score >= a.cfg.HighAt:
		level = domain.RiskHigh
	case score >= a.cfg.MediumAt:
		level = domain.RiskMedium
	case score >= a.cfg.LowAt:
		level = domain.RiskLow
	}

	return &domain.RiskAssessment{
		RiskScore:      score,
		RiskLevel:      level,
		RiskFactors:    a.factors(rate, critical, high, tally),
		AnomalyRate:    rate,
		TotalAnomalies: tally.Total,
	}, nil
}

// factors lists the triggered conditions in a fixed order so that equal
// inputs always produce the same sequence.
func (a *Assessor) factors(rate float64, critical, high int, tally *domain.AnomalyTally) []string {
	var factors []string

	if rate > a.cfg.HighRateAt {
		factors = append(factors, fmt.Sprintf("high anomaly rate (%.1f%% of transactions flagged)", rate*100))
	}
	if critical > 0 {
		factors = append(factors, fmt.Sprintf("%d critical severity anomalies", critical))
	}
	if high > 0 {
		factors = append(factors, fmt.Sprintf("%d high severity anomalies", high))
	}
	if tally.BySignal[domain.SignalOutlier] > 0 {
		factors = append(factors, "statistical outliers present")
	}
	if tally.BySignal[domain.SignalLarge] > 0 {
		factors = append(factors, "transactions above the large-amount threshold")
	}
	if tally.BySignal[domain.SignalDuplicate] > 0 {
		factors = append(factors, "duplicate transactions detected")
	}
	if tally.BySignal[domain.SignalVelocity] > 0 {
		factors = append(factors, "rapid spending bursts detected")
	}
	if tally.BySignal[domain.SignalDiversity] > 0 {
		factors = append(factors, "unusual merchant diversity")
	}
	if tally.BySignal[domain.SignalWatchRule] > 0 {
		factors = append(factors, "watch rules matched")
	}

	return factors
}
