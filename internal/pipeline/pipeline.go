// Package pipeline turns raw extracted rows into validated transactions.
// Each row passes through the normalizers in a fixed order (date, amount,
// merchant, category); a row that fails any step is recorded as a failure
// and the batch continues without it.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/normalize"
)

// Pipeline normalizes raw records into transactions.
type Pipeline struct {
	merchants  *normalize.MerchantNormalizer
	categories *normalize.CategoryInferencer
	bus        domain.EventBus
	logger     *slog.Logger
}

// New creates a pipeline. The bus is optional; when nil, no events are
// published.
func New(cfg domain.PipelineConfig, bus domain.EventBus, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		merchants:  normalize.NewMerchantNormalizer(cfg.KeepSubBrands),
		categories: normalize.NewCategoryInferencer(),
		bus:        bus,
		logger:     logger,
	}
}

// Process normalizes a batch of raw records. Output transactions preserve
// input order. Row failures never abort the batch; each one is attributed
// to its source row and returned alongside the successes.
func (p *Pipeline) Process(ctx context.Context, records []domain.RawRecord) ([]*domain.Transaction, []domain.RowFailure) {
	transactions := make([]*domain.Transaction, 0, len(records))
	var failures []domain.RowFailure

	for _, rec := range records {
		tx, err := p.processRow(rec)
		if err != nil {
			failure := domain.RowFailure{Row: rec.Row, Reason: err.Error()}
			failures = append(failures, failure)
			p.logger.Warn("row rejected", "row", rec.Row, "reason", err.Error())
			p.publish(ctx, domain.TopicParseError, failure)
			continue
		}

		transactions = append(transactions, tx)
		p.publish(ctx, domain.TopicTransactionParsed, tx)
	}

	p.logger.Info("batch normalized",
		"rows", len(records),
		"transactions", len(transactions),
		"failures", len(failures))

	return transactions, failures
}

// processRow runs one record through the normalizers in order. The first
// failing step decides the failure reason.
func (p *Pipeline) processRow(rec domain.RawRecord) (*domain.Transaction, error) {
	date, err := normalize.NormalizeDate(rec.Date)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", rec.Date, err)
	}

	amount, currency, isRefund, err := normalize.NormalizeAmount(rec.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", rec.Amount, err)
	}

	merchant := p.merchants.Normalize(rec.Merchant)
	category := p.categories.Infer(merchant, rec.Category)

	tx, err := domain.NewTransaction(date, rec.Merchant, merchant, amount, currency, category, isRefund)
	if err != nil {
		return nil, err
	}
	tx.ID = uuid.New().String()

	return tx, nil
}

// publish sends an event best-effort; a full or closed bus never fails
// the batch.
func (p *Pipeline) publish(ctx context.Context, topic string, payload any) {
	if p.bus == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event payload", "topic", topic, "error", err)
		return
	}
	if err := p.bus.Publish(ctx, topic, data); err != nil {
		p.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}
