package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestPipelineProcess(t *testing.T) {
	ctx := context.Background()
	p := New(domain.DefaultConfig().Pipeline, nil, nil)

	t.Run("NormalizesWellFormedRows", func(t *testing.T) {
		records := []domain.RawRecord{
			{Row: 2, Date: "2023-01-15", Merchant: "UBER *TRIP HELP.UBER.COM", Amount: "$25.50", Category: ""},
			{Row: 3, Date: "01/16/2023", Merchant: "STARBUCKS STORE #4512", Amount: "(4.75)", Category: ""},
			{Row: 4, Date: "Jan 17th, 2023", Merchant: "AMZN Mktp US*2X3Y4Z", Amount: "89.99", Category: "Gifts"},
		}

		txs, failures := p.Process(ctx, records)
		if len(failures) != 0 {
			t.Fatalf("unexpected failures: %v", failures)
		}
		if len(txs) != 3 {
			t.Fatalf("got %d transactions, want 3", len(txs))
		}

		uber := txs[0]
		if uber.Merchant != "Uber" {
			t.Errorf("merchant = %q, want Uber", uber.Merchant)
		}
		if uber.Category != "Transportation" {
			t.Errorf("category = %q, want Transportation", uber.Category)
		}
		if uber.Amount.String() != "25.5" || uber.Currency != "USD" || uber.IsRefund {
			t.Errorf("amount = %s %s refund=%v", uber.Amount, uber.Currency, uber.IsRefund)
		}
		if uber.Day() != "2023-01-15" {
			t.Errorf("date = %s", uber.Day())
		}
		if uber.RawMerchantLabel != "UBER *TRIP HELP.UBER.COM" {
			t.Errorf("raw label not preserved: %q", uber.RawMerchantLabel)
		}
		if uber.ID == "" {
			t.Error("transaction ID not assigned")
		}

		refund := txs[1]
		if !refund.IsRefund || refund.Amount.String() != "-4.75" {
			t.Errorf("parenthesized amount: refund=%v amount=%s", refund.IsRefund, refund.Amount)
		}
		if refund.Merchant != "Starbucks" {
			t.Errorf("merchant = %q, want Starbucks", refund.Merchant)
		}

		amazon := txs[2]
		if amazon.Merchant != "Amazon" {
			t.Errorf("merchant = %q, want Amazon", amazon.Merchant)
		}
		if amazon.Category != "Gifts" {
			t.Errorf("explicit category not preserved: %q", amazon.Category)
		}
	})

	t.Run("BadRowsFailWithoutAbortingBatch", func(t *testing.T) {
		records := []domain.RawRecord{
			{Row: 2, Date: "2023-01-15", Merchant: "Shop", Amount: "10.00"},
			{Row: 3, Date: "not a date", Merchant: "Shop", Amount: "10.00"},
			{Row: 4, Date: "2023-01-16", Merchant: "Shop", Amount: "around fifty dollars"},
			{Row: 5, Date: "2023-01-17", Merchant: "Shop", Amount: "12.00"},
		}

		txs, failures := p.Process(ctx, records)
		if len(txs) != 2 {
			t.Errorf("got %d transactions, want 2", len(txs))
		}
		if len(failures) != 2 {
			t.Fatalf("got %d failures, want 2: %v", len(failures), failures)
		}
		if failures[0].Row != 3 || !strings.Contains(failures[0].Reason, "date") {
			t.Errorf("failure attribution: %+v", failures[0])
		}
		if failures[1].Row != 4 || !strings.Contains(failures[1].Reason, "amount") {
			t.Errorf("failure attribution: %+v", failures[1])
		}
	})

	t.Run("EmptyMerchantGetsSentinel", func(t *testing.T) {
		records := []domain.RawRecord{
			{Row: 2, Date: "2023-01-15", Merchant: "   ", Amount: "10.00"},
		}

		txs, failures := p.Process(ctx, records)
		if len(failures) != 0 {
			t.Fatalf("sentinel row should not fail: %v", failures)
		}
		if txs[0].Merchant != domain.UnknownMerchant {
			t.Errorf("merchant = %q, want %q", txs[0].Merchant, domain.UnknownMerchant)
		}
		if txs[0].Category != domain.UncategorizedCategory {
			t.Errorf("category = %q, want %q", txs[0].Category, domain.UncategorizedCategory)
		}
	})

	t.Run("EmptyBatchYieldsEmptyResults", func(t *testing.T) {
		txs, failures := p.Process(ctx, nil)
		if len(txs) != 0 || len(failures) != 0 {
			t.Errorf("empty input produced %d transactions, %d failures", len(txs), len(failures))
		}
	})

	t.Run("SubBrandPolicy", func(t *testing.T) {
		records := []domain.RawRecord{
			{Row: 2, Date: "2023-01-15", Merchant: "UBER EATS", Amount: "30.00"},
		}

		folded, _ := p.Process(ctx, records)
		if folded[0].Merchant != "Uber" {
			t.Errorf("default policy folds sub-brands, got %q", folded[0].Merchant)
		}

		split := New(domain.PipelineConfig{KeepSubBrands: true}, nil, nil)
		kept, _ := split.Process(ctx, records)
		if kept[0].Merchant != "Uber Eats" {
			t.Errorf("KeepSubBrands should preserve %q, got %q", "Uber Eats", kept[0].Merchant)
		}
	})
}
