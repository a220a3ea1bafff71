package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/adapters/cache"
	"github.com/applizz/jobmail/internal/config"
	"github.com/applizz/jobmail/internal/core"
)

// CacheFactory creates analysis caches based on configuration
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

// CreateAnalysisCache creates the analysis cache. Type "memory" runs without
// persistence; "sqlite" and "mysql" layer the persistent store under the
// in-memory tier so LLM verdicts survive restarts.
func (f *CacheFactory) CreateAnalysisCache() (core.AnalysisCache, error) {
	cacheCfg := f.cfg.GetCache()
	memory := cache.NewMemoryCache(f.logger)

	switch cacheCfg.Type {
	case "memory":
		return memory, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		persisted, err := cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger)
		if err != nil {
			return nil, err
		}
		return cache.NewTieredCache(memory, persisted), nil
	case "mysql":
		persisted, err := cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger)
		if err != nil {
			return nil, err
		}
		return cache.NewTieredCache(memory, persisted), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// CreateJanitor creates the background cleanup loop for the given cache.
func (f *CacheFactory) CreateJanitor(analysisCache core.AnalysisCache) (*cache.Janitor, error) {
	freq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}
	return cache.NewJanitor([]core.AnalysisCache{analysisCache}, freq, f.logger), nil
}

// GetCacheTTL returns the configured keyword-tier cache TTL
func (f *CacheFactory) GetCacheTTL() (time.Duration, error) {
	return f.cfg.GetDuration("cache.ttl")
}

// GetLLMCacheTTL returns the configured LLM-tier cache TTL
func (f *CacheFactory) GetLLMCacheTTL() (time.Duration, error) {
	return f.cfg.GetDuration("cache.llm_ttl")
}
