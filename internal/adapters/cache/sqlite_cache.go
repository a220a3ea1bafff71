package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// SQLiteCache is the persisted long-term tier of the analysis cache, used
// for LLM results so repeated scans of the same mailbox do not re-pay the
// provider cost.
type SQLiteCache struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteCache creates a new SQLite-backed analysis cache.
func NewSQLiteCache(dbPath string, logger *zap.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			key TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			result TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create analysis_cache table: %w", err)
	}

	// Indexes keep the janitor sweep and the per-user wipe cheap.
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_analysis_cache_expires_at ON analysis_cache(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_cache_user_id ON analysis_cache(user_id)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	return &SQLiteCache{db: db, logger: logger}, nil
}

// Get retrieves a cached classification by key.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*core.ClassificationResult, bool) {
	var payload string
	err := c.db.QueryRowContext(ctx, `
		SELECT result FROM analysis_cache
		WHERE key = ? AND expires_at > ?
	`, key, time.Now().UTC().Format(time.RFC3339)).Scan(&payload)
	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("failed to query analysis cache", zap.Error(err))
		}
		return nil, false
	}

	var result core.ClassificationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		c.logger.Error("failed to decode cached result", zap.Error(err))
		return nil, false
	}
	return &result, true
}

// Set stores an entry with upsert semantics.
func (c *SQLiteCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	payload, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analysis_cache (key, user_id, result, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Key, entry.UserID, string(payload),
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Cleanup deletes expired rows.
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM analysis_cache WHERE expires_at <= ?
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil {
		c.logger.Debug("cleaned up expired cache entries", zap.Int64("expired_count", rows))
	}
	return nil
}

// DeleteUser removes all cached results for one user.
func (c *SQLiteCache) DeleteUser(ctx context.Context, userID string) (int64, error) {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM analysis_cache WHERE user_id = ?
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
