package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// MySQLCache is a MySQL-backed persisted analysis cache, for deployments
// that already run MySQL instead of a local SQLite file.
type MySQLCache struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLCache creates a new MySQL-backed analysis cache.
func NewMySQLCache(dsn string, logger *zap.Logger) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			cache_key VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			result TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			INDEX idx_analysis_cache_expires_at (expires_at),
			INDEX idx_analysis_cache_user_id (user_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create analysis_cache table: %w", err)
	}

	return &MySQLCache{db: db, logger: logger}, nil
}

// Get retrieves a cached classification by key.
func (c *MySQLCache) Get(ctx context.Context, key string) (*core.ClassificationResult, bool) {
	var payload string
	err := c.db.QueryRowContext(ctx, `
		SELECT result FROM analysis_cache
		WHERE cache_key = ? AND expires_at > UTC_TIMESTAMP()
	`, key).Scan(&payload)
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
func (c *MySQLCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	payload, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (cache_key, user_id, result, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			user_id = VALUES(user_id),
			result = VALUES(result),
			created_at = VALUES(created_at),
			expires_at = VALUES(expires_at)
	`, entry.Key, entry.UserID, string(payload),
		entry.CreatedAt.UTC().Format(time.DateTime),
		entry.ExpiresAt.UTC().Format(time.DateTime))
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Cleanup deletes expired rows.
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM analysis_cache WHERE expires_at <= UTC_TIMESTAMP()
	`)
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil {
		c.logger.Debug("cleaned up expired cache entries", zap.Int64("expired_count", rows))
	}
	return nil
}

// DeleteUser removes all cached results for one user.
func (c *MySQLCache) DeleteUser(ctx context.Context, userID string) (int64, error) {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM analysis_cache WHERE user_id = ?
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database.
func (c *MySQLCache) Close() error {
	return c.db.Close()
}
