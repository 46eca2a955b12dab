package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/tagmda/internal/adapters/cache"
	"github.com/mikey/tagmda/internal/config"
	"github.com/mikey/tagmda/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates processed-id cache stores based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheStore creates a cache store based on the configuration
func (f *CacheFactory) CreateCacheStore() (core.CacheStore, error) {
	cacheCfg := f.cfg.GetPending().Cache

	switch cacheCfg.Type {
	case "file":
		if cacheCfg.Path == "" {
			return nil, fmt.Errorf("pending.cache.path is required for the file cache")
		}
		return cache.NewFileCache(cacheCfg.Path, f.logger), nil
	case "memory":
		return cache.NewMemoryCache(f.logger), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cacheCfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		store, err := cache.NewSQLiteCache(cacheCfg.Path, f.logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "mysql":
		store, err := cache.NewMySQLCache(f.cfg.GetString("db.dsn"), f.logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetPending().Cache.Enabled
}
