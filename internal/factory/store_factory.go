package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/adapters/store"
	"github.com/applizz/jobmail/internal/config"
	"github.com/applizz/jobmail/internal/core"
)

// Stores bundles the three persistence ports, usually backed by one database.
type Stores struct {
	Applications core.ApplicationStore
	Credentials  core.CredentialStore
	Suggestions  core.SuggestionStore
}

// StoreFactory creates the persistent stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStores creates the application, credential and suggestion stores.
func (f *StoreFactory) CreateStores() (*Stores, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		s, err := store.NewSQLiteStore(storeCfg.SQLitePath, f.logger)
		if err != nil {
			return nil, err
		}
		return &Stores{Applications: s, Credentials: s, Suggestions: s}, nil
	case "memory":
		s := store.NewMemoryStore()
		return &Stores{Applications: s, Credentials: s, Suggestions: s}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
