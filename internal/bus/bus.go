package bus

import "github.com/opensource-finance/kestrel/internal/domain"

// New creates the event bus from configuration.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	return NewChannelBus(cfg.BufferSize), nil
}
