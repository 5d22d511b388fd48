package domain

import "context"

// Event topics published by the pipeline and analyzer.
const (
	TopicTransactionParsed = "transaction.parsed"
	TopicParseError        = "parse.error"
	TopicAnomalyFlagged    = "anomaly.flagged"
	TopicAnalysisCompleted = "analysis.completed"
)

// Event is a message delivered over the event bus.
type Event struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"` // unix nanos
}

// EventHandler processes a single event.
type EventHandler func(ctx context.Context, ev *Event) error

// Subscription is a live topic subscription.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// EventBus is the in-process pub/sub boundary between the pipeline and
// observers such as the audit trail.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}
