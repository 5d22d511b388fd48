package anomaly

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/shopspring/decimal"
)

func testConfig() domain.DetectorConfig {
	return domain.DefaultConfig().Detector
}

func tx(t *testing.T, date time.Time, merchant, amount string) *domain.Transaction {
	t.Helper()
	amt := decimal.RequireFromString(amount)
	txn, err := domain.NewTransaction(date, merchant, merchant, amt, "USD", "Shopping", amt.IsNegative())
	if err != nil {
		t.Fatalf("building transaction: %v", err)
	}
	return txn
}

func day(n int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestDetector(t *testing.T) {
	t.Run("EmptyBatch", func(t *testing.T) {
		d := NewDetector(testConfig())
		if _, err := d.Analyze(nil); err != domain.ErrEmptyBatch {
			t.Errorf("expected ErrEmptyBatch, got %v", err)
		}
	})

	t.Run("StatisticalOutlier", func(t *testing.T) {
		d := NewDetector(testConfig())

		var batch []*domain.Transaction
		for i := 0; i < 10; i++ {
			batch = append(batch, tx(t, day(i), fmt.Sprintf("Shop %c", 'A'+i), "50.00"))
		}
		outlier := tx(t, day(10), "Expensive Shop", "5000.00")
		batch = append(batch, outlier)

		tally, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}

		if !outlier.IsAnomaly {
			t.Fatal("outlier transaction not flagged")
		}
		switch outlier.Severity {
		case domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium:
		default:
			t.Errorf("outlier severity = %s, want CRITICAL/HIGH/MEDIUM", outlier.Severity)
		}
		for _, b := range batch[:10] {
			if b.IsAnomaly {
				t.Errorf("normal transaction flagged: %s (%s)", b.Merchant, b.Reason)
			}
		}
		if tally.BySignal[domain.SignalOutlier] != 1 {
			t.Errorf("outlier tally = %d, want 1", tally.BySignal[domain.SignalOutlier])
		}
	})

	t.Run("ZeroVarianceDisablesOutlierSignal", func(t *testing.T) {
		d := NewDetector(testConfig())

		var batch []*domain.Transaction
		for i := 0; i < 10; i++ {
			batch = append(batch, tx(t, day(i), fmt.Sprintf("Shop %c", 'A'+i), "50.00"))
		}

		tally, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if tally.Total != 0 {
			t.Errorf("identical amounts produced %d anomalies, want 0", tally.Total)
		}
	})

	t.Run("SingleSeverityPerTransaction", func(t *testing.T) {
		// 5000.00 qualifies as both a statistical outlier and a large
		// retail transaction; only the outlier signal (higher priority)
		// may annotate it, and the reason is a single string.
		d := NewDetector(testConfig())

		var batch []*domain.Transaction
		for i := 0; i < 10; i++ {
			batch = append(batch, tx(t, day(i), fmt.Sprintf("Shop %c", 'A'+i), "50.00"))
		}
		big := tx(t, day(10), "Expensive Shop", "5000.00")
		batch = append(batch, big)

		if _, err := d.Analyze(batch); err != nil {
			t.Fatalf("analyze: %v", err)
		}

		if !strings.Contains(big.Reason, "statistical outlier") {
			t.Errorf("highest-priority signal should win, reason = %q", big.Reason)
		}
		if strings.Contains(big.Reason, "large transaction") {
			t.Errorf("reasons must not accumulate: %q", big.Reason)
		}
	})

	t.Run("LargeTransactionRetailTiers", func(t *testing.T) {
		d := NewDetector(testConfig())

		batch := []*domain.Transaction{
			tx(t, day(0), "Corner Shop", "100.00"),
			tx(t, day(1), "Other Shop", "200.00"),
			tx(t, day(2), "Big Purchase", "3000.00"),
		}

		if _, err := d.Analyze(batch); err != nil {
			t.Fatalf("analyze: %v", err)
		}

		big := batch[2]
		if !big.IsAnomaly {
			t.Fatal("3000.00 retail transaction not flagged")
		}
		if big.Severity != domain.SeverityHigh {
			t.Errorf("severity = %s, want HIGH (3000 >= 2000 high tier)", big.Severity)
		}
		if !strings.Contains(big.Reason, "large transaction") {
			t.Errorf("reason = %q", big.Reason)
		}
	})

	t.Run("LargeTransactionEnterpriseTiers", func(t *testing.T) {
		// Average over 50K switches to enterprise tiers: a 90K wire is
		// unremarkable there.
		d := NewDetector(testConfig())

		batch := []*domain.Transaction{
			tx(t, day(0), "Vendor A", "90000.00"),
			tx(t, day(1), "Vendor B", "80000.00"),
			tx(t, day(2), "Vendor C", "85000.00"),
		}

		tally, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if n := tally.BySignal[domain.SignalLarge]; n != 0 {
			t.Errorf("enterprise-scale batch flagged %d large transactions, want 0", n)
		}
	})

	t.Run("DuplicateDetection", func(t *testing.T) {
		d := NewDetector(testConfig())

		batch := []*domain.Transaction{
			tx(t, day(0), "Corner Shop", "100.00"),
			tx(t, day(0), "Corner Shop", "100.00"), // same merchant, amount, date
			tx(t, day(1), "Corner Shop", "100.00"), // distinct date
		}

		if _, err := d.Analyze(batch); err != nil {
			t.Fatalf("analyze: %v", err)
		}

		if batch[0].IsAnomaly {
			t.Error("first occurrence must not be flagged")
		}
		if !batch[1].IsAnomaly || !strings.Contains(strings.ToLower(batch[1].Reason), "duplicate") {
			t.Errorf("second occurrence should be a duplicate, got %q", batch[1].Reason)
		}
		if batch[1].Severity != domain.SeverityMedium {
			t.Errorf("duplicate severity = %s, want MEDIUM", batch[1].Severity)
		}
		if batch[2].IsAnomaly {
			t.Error("distinct-date transaction must not be flagged as duplicate")
		}
	})

	t.Run("SpendingVelocity", func(t *testing.T) {
		d := NewDetector(testConfig())

		burst := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
		batch := []*domain.Transaction{
			tx(t, burst, "Shop One", "200.00"),
			tx(t, burst.Add(2*time.Hour), "Shop Two", "200.00"),
			tx(t, burst.Add(4*time.Hour), "Shop Three", "200.00"),
			tx(t, day(1), "Quiet Shop", "50.00"),
			tx(t, day(2), "Calm Shop", "50.00"),
		}

		tally, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}

		if tally.BySignal[domain.SignalVelocity] == 0 {
			t.Fatal("burst of 600.00 in four hours not flagged")
		}
		flagged := 0
		for _, b := range batch[:3] {
			if b.IsAnomaly {
				flagged++
			}
		}
		if flagged == 0 {
			t.Error("no burst transaction flagged")
		}
		if batch[3].IsAnomaly || batch[4].IsAnomaly {
			t.Error("quiet-day transactions must not be flagged")
		}
	})

	t.Run("VelocityNeedsMinimumBatch", func(t *testing.T) {
		d := NewDetector(testConfig())

		burst := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
		batch := []*domain.Transaction{
			tx(t, burst, "Shop One", "200.00"),
			tx(t, burst.Add(time.Hour), "Shop Two", "200.00"),
			tx(t, burst.Add(2*time.Hour), "Shop Three", "200.00"),
		}

		tally, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if tally.BySignal[domain.SignalVelocity] != 0 {
			t.Error("velocity signal must not engage below the minimum batch size")
		}
	})

	t.Run("MerchantDiversity", func(t *testing.T) {
		d := NewDetector(testConfig())

		// Ten distinct merchants on one day, spaced to stay under the
		// velocity threshold, against three quiet single-merchant days.
		busy := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		var batch []*domain.Transaction
		for i := 0; i < 10; i++ {
			batch = append(batch, tx(t, busy.Add(time.Duration(i)*2*time.Hour), fmt.Sprintf("Spree Shop %c", 'A'+i), "50.00"))
		}
		for i := 1; i <= 3; i++ {
			batch = append(batch, tx(t, day(i), "Regular Shop", "50.00"))
		}

		tally, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}

		if tally.BySignal[domain.SignalDiversity] == 0 {
			t.Fatal("diversity spike not flagged")
		}
		for _, b := range batch[10:] {
			if b.IsAnomaly {
				t.Errorf("quiet-day transaction flagged: %s", b.Reason)
			}
		}
	})

	t.Run("TallyResetsPerRun", func(t *testing.T) {
		d := NewDetector(testConfig())

		batch := []*domain.Transaction{
			tx(t, day(0), "Corner Shop", "100.00"),
			tx(t, day(0), "Corner Shop", "100.00"),
			tx(t, day(1), "Other Shop", "50.00"),
		}

		first, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		second, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}

		if first.Total != second.Total {
			t.Errorf("tally not reset: first %d, second %d", first.Total, second.Total)
		}
		if second.Count(domain.SeverityMedium) != 1 {
			t.Errorf("medium count = %d, want 1", second.Count(domain.SeverityMedium))
		}
	})

	t.Run("SingleTransactionBatch", func(t *testing.T) {
		d := NewDetector(testConfig())

		batch := []*domain.Transaction{tx(t, day(0), "Only Shop", "50.00")}
		tally, err := d.Analyze(batch)
		if err != nil {
			t.Fatalf("minimal batch must not fail: %v", err)
		}
		if tally.Total != 0 {
			t.Errorf("single-transaction batch produced %d anomalies", tally.Total)
		}
	})
}
