// Package audit records pipeline and analysis events to an append-only
// JSONL trail. The trail subscribes to the event bus, so producers never
// know or care whether auditing is enabled.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Trail appends one JSON line per observed event.
type Trail struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger

	subscriptions []domain.Subscription
}

// entry is the persisted form of one audit record.
type entry struct {
	EventID   string          `json:"eventId"`
	Topic     string          `json:"topic"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewTrail opens (or creates) the audit file for appending.
func NewTrail(cfg domain.AuditConfig, logger *slog.Logger) (*Trail, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating audit directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}

	return &Trail{file: f, logger: logger}, nil
}

// Start subscribes the trail to the standard pipeline topics.
func (t *Trail) Start(ctx context.Context, bus domain.EventBus) error {
	topics := []string{
		domain.TopicTransactionParsed,
		domain.TopicParseError,
		domain.TopicAnomalyFlagged,
		domain.TopicAnalysisCompleted,
	}

	for _, topic := range topics {
		sub, err := bus.Subscribe(ctx, topic, t.record)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		t.subscriptions = append(t.subscriptions, sub)
	}

	t.logger.Info("audit trail started", "topics", len(topics))
	return nil
}

// record writes one event as a JSON line. Write failures are logged, not
// propagated; auditing never blocks the pipeline.
func (t *Trail) record(ctx context.Context, ev *domain.Event) error {
	line, err := json.Marshal(entry{
		EventID:   ev.ID,
		Topic:     ev.Topic,
		Timestamp: ev.Timestamp,
		Payload:   ev.Payload,
	})
	if err != nil {
		t.logger.Error("failed to marshal audit entry", "topic", ev.Topic, "error", err)
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.file.Write(append(line, '\n')); err != nil {
		t.logger.Error("failed to write audit entry", "topic", ev.Topic, "error", err)
		return err
	}
	return nil
}

// Close unsubscribes and closes the audit file.
func (t *Trail) Close() error {
	for _, sub := range t.subscriptions {
		_ = sub.Unsubscribe()
	}
	t.subscriptions = nil

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}
