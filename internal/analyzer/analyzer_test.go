package analyzer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/rules"
)

func TestAnalyzerRun(t *testing.T) {
	ctx := context.Background()
	cfg := domain.DefaultConfig()

	t.Run("EndToEnd", func(t *testing.T) {
		a := New(cfg, nil, nil, nil)

		records := []domain.RawRecord{
			{Row: 2, Date: "2023-01-15", Merchant: "STARBUCKS #4512", Amount: "$5.50"},
			{Row: 3, Date: "2023-01-16", Merchant: "AMAZON.COM", Amount: "$45.00"},
			{Row: 4, Date: "2023-01-17", Merchant: "Target", Amount: "$30.00"},
			{Row: 5, Date: "2023-01-18", Merchant: "BIG PURCHASE LLC", Amount: "$6000.00"},
			{Row: 6, Date: "not a date", Merchant: "Broken", Amount: "$1.00"},
		}

		result, err := a.Run(ctx, records)
		if err != nil {
			t.Fatalf("run: %v", err)
		}

		if result.ID == "" {
			t.Error("analysis id not assigned")
		}
		if len(result.Transactions) != 4 {
			t.Errorf("transactions = %d, want 4", len(result.Transactions))
		}
		if len(result.Failures) != 1 || result.Failures[0].Row != 6 {
			t.Errorf("failures = %v", result.Failures)
		}
		// 6000 exceeds the critical retail tier.
		if result.Tally.Total == 0 {
			t.Error("expected the 6000.00 transaction to be flagged")
		}
		if result.Summary.TotalTransactions != 4 {
			t.Errorf("summary total = %d", result.Summary.TotalTransactions)
		}
		if result.Risk.RiskLevel == "" {
			t.Error("risk level not set")
		}
	})

	t.Run("NoSurvivingRows", func(t *testing.T) {
		a := New(cfg, nil, nil, nil)

		records := []domain.RawRecord{
			{Row: 2, Date: "garbage", Merchant: "Shop", Amount: "10.00"},
		}
		if _, err := a.Run(ctx, records); err != domain.ErrEmptyBatch {
			t.Errorf("expected ErrEmptyBatch, got %v", err)
		}
	})

	t.Run("WatchRulesAnnotate", func(t *testing.T) {
		engine, err := rules.NewEngine()
		if err != nil {
			t.Fatalf("engine: %v", err)
		}
		defer engine.Close()
		engine.LoadRule(&domain.WatchRuleConfig{
			ID:         "watch-target",
			Expression: `merchant == "Target"`,
			Reason:     "merchant on watch list",
			Enabled:    true,
		})

		a := New(cfg, engine, nil, nil)
		records := []domain.RawRecord{
			{Row: 2, Date: "2023-01-15", Merchant: "Target", Amount: "30.00"},
			{Row: 3, Date: "2023-01-16", Merchant: "Walmart", Amount: "32.00"},
		}

		result, err := a.Run(ctx, records)
		if err != nil {
			t.Fatalf("run: %v", err)
		}

		target := result.Transactions[0]
		if !target.IsAnomaly || target.Severity != domain.SeverityInfo {
			t.Errorf("watch rule should annotate at INFO, got %v %s", target.IsAnomaly, target.Severity)
		}
		if result.Tally.BySignal[domain.SignalWatchRule] != 1 {
			t.Errorf("watch rule tally = %d", result.Tally.BySignal[domain.SignalWatchRule])
		}
	})

	t.Run("PublishesEvents", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()

		var completed, flagged atomic.Int32
		eventBus.Subscribe(ctx, domain.TopicAnalysisCompleted, func(ctx context.Context, ev *domain.Event) error {
			completed.Add(1)
			return nil
		})
		eventBus.Subscribe(ctx, domain.TopicAnomalyFlagged, func(ctx context.Context, ev *domain.Event) error {
			flagged.Add(1)
			return nil
		})

		a := New(cfg, nil, eventBus, nil)
		records := []domain.RawRecord{
			{Row: 2, Date: "2023-01-15", Merchant: "Shop A", Amount: "30.00"},
			{Row: 3, Date: "2023-01-16", Merchant: "Shop B", Amount: "6000.00"},
		}

		if _, err := a.Run(ctx, records); err != nil {
			t.Fatalf("run: %v", err)
		}

		time.Sleep(100 * time.Millisecond)

		if completed.Load() != 1 {
			t.Errorf("analysis.completed events = %d, want 1", completed.Load())
		}
		if flagged.Load() == 0 {
			t.Error("expected anomaly.flagged event for the 6000.00 transaction")
		}
	})
}
