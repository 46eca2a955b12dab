package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryCache keeps the processed-id cache for the life of the process
type MemoryCache struct {
	ids    []string
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewMemoryCache creates an empty in-memory cache store
func NewMemoryCache(logger *zap.Logger) *MemoryCache {
	return &MemoryCache{logger: logger}
}

// Load returns the stored ids, most recent first
func (c *MemoryCache) Load(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.ids...), nil
}

// Save replaces the stored ids
func (c *MemoryCache) Save(ctx context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ids = append([]string(nil), ids...)
	c.logger.Debug("Saved pending cache", zap.Int("entries", len(ids)))
	return nil
}
