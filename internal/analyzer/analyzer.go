// Package analyzer orchestrates a full batch analysis: normalization,
// detection signals, watch rules, risk scoring, and summary. Both the CLI
// and the HTTP API run batches through this one path.
package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/anomaly"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/pipeline"
	"github.com/opensource-finance/kestrel/internal/report"
	"github.com/opensource-finance/kestrel/internal/risk"
	"github.com/opensource-finance/kestrel/internal/rules"
)

// Result is the complete outcome of one batch analysis.
type Result struct {
	ID           string                 `json:"id"`
	Transactions []*domain.Transaction  `json:"transactions"`
	Failures     []domain.RowFailure    `json:"failures,omitempty"`
	Tally        *domain.AnomalyTally   `json:"anomalies"`
	Summary      *domain.Summary        `json:"summary"`
	Risk         *domain.RiskAssessment `json:"risk"`
	CompletedAt  time.Time              `json:"completedAt"`
	DurationMs   int64                  `json:"durationMs"`
}

// Analyzer runs batches end to end.
type Analyzer struct {
	pipeline *pipeline.Pipeline
	detector *anomaly.Detector
	engine   *rules.Engine
	assessor *risk.Assessor
	bus      domain.EventBus
	logger   *slog.Logger
}

// New wires an analyzer. The rules engine and bus are optional.
func New(cfg *domain.Config, engine *rules.Engine, eventBus domain.EventBus, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		pipeline: pipeline.New(cfg.Pipeline, eventBus, logger),
		detector: anomaly.NewDetector(cfg.Detector),
		engine:   engine,
		assessor: risk.NewAssessor(cfg.Risk),
		bus:      eventBus,
		logger:   logger,
	}
}

// Run normalizes and analyzes one batch of raw records. A batch where no
// row survives normalization returns ErrEmptyBatch.
func (a *Analyzer) Run(ctx context.Context, records []domain.RawRecord) (*Result, error) {
	start := time.Now()

	batch, failures := a.pipeline.Process(ctx, records)
	if len(batch) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	tally, err := a.detector.Analyze(batch)
	if err != nil {
		return nil, err
	}

	if a.engine != nil {
		a.engine.Annotate(batch, tally)
	}

	assessment, err := a.assessor.Assess(len(batch), tally)
	if err != nil {
		return nil, err
	}

	summary, err := report.Summarize(batch, tally)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:           uuid.New().String(),
		Transactions: batch,
		Failures:     failures,
		Tally:        tally,
		Summary:      summary,
		Risk:         assessment,
		CompletedAt:  time.Now().UTC(),
		DurationMs:   time.Since(start).Milliseconds(),
	}

	a.publishOutcome(ctx, result)

	a.logger.Info("analysis completed",
		"analysis_id", result.ID,
		"transactions", len(batch),
		"failures", len(failures),
		"anomalies", tally.Total,
		"risk_level", assessment.RiskLevel,
		"duration_ms", result.DurationMs)

	return result, nil
}

func (a *Analyzer) publishOutcome(ctx context.Context, result *Result) {
	if a.bus == nil {
		return
	}

	for _, tx := range result.Transactions {
		if !tx.IsAnomaly {
			continue
		}
		if data, err := json.Marshal(tx); err == nil {
			_ = a.bus.Publish(ctx, domain.TopicAnomalyFlagged, data)
		}
	}

	completed := map[string]any{
		"analysisId":   result.ID,
		"transactions": len(result.Transactions),
		"anomalies":    result.Tally.Total,
		"riskLevel":    result.Risk.RiskLevel,
	}
	if data, err := json.Marshal(completed); err == nil {
		_ = a.bus.Publish(ctx, domain.TopicAnalysisCompleted, data)
	}
}
