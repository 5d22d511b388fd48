package cache

import "github.com/opensource-finance/kestrel/internal/domain"

// New creates the analysis cache from configuration.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	return NewLRUCache(cfg.MaxSize), nil
}
