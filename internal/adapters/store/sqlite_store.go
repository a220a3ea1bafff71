// Package store provides persistence for application records, mailbox
// credentials and suggestion batches.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// SQLiteStore implements the application, credential and suggestion stores
// on a single SQLite database. Suggestion batches persist their suggestion
// list as one JSON document so accept/reject shrinks it in a single write.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and migrates) the store database.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS applications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			company TEXT NOT NULL,
			position TEXT NOT NULL,
			status TEXT NOT NULL,
			date_applied TIMESTAMP NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			deadline TIMESTAMP,
			notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_user_id ON applications(user_id)`,
		`CREATE TABLE IF NOT EXISTS mail_credentials (
			user_id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			email_address TEXT NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiry TIMESTAMP,
			imap_host TEXT NOT NULL DEFAULT '',
			app_password TEXT NOT NULL DEFAULT '',
			scan_enabled INTEGER NOT NULL DEFAULT 1,
			llm_enabled INTEGER NOT NULL DEFAULT 0,
			last_scan_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS suggestion_batches (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			suggestions TEXT NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestion_batches_user_id ON suggestion_batches(user_id)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate store: %w", err)
		}
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// FindByUser returns all application records for one user.
func (s *SQLiteStore) FindByUser(ctx context.Context, userID string) ([]core.ApplicationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, company, position, status, date_applied, url, deadline, notes
		FROM applications WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var records []core.ApplicationRecord
	for rows.Next() {
		var rec core.ApplicationRecord
		var status string
		var deadline sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Company, &rec.Position,
			&status, &rec.DateApplied, &rec.URL, &deadline, &rec.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan application row: %w", err)
		}
		rec.Status = core.Status(status)
		if deadline.Valid {
			d := deadline.Time
			rec.Deadline = &d
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Insert stores a new application record, assigning an id when absent.
func (s *SQLiteStore) Insert(ctx context.Context, rec *core.ApplicationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	var deadline interface{}
	if rec.Deadline != nil {
		deadline = *rec.Deadline
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, user_id, company, position, status, date_applied, url, deadline, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.Company, rec.Position, string(rec.Status),
		rec.DateApplied, rec.URL, deadline, rec.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of one application record.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status core.Status) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE applications SET status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteByUser removes every application record for one user. Only the
// destructive reset operation uses this.
func (s *SQLiteStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete applications: %w", err)
	}
	return result.RowsAffected()
}

// Get loads one user's mailbox credentials.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*core.MailCredentials, error) {
	var creds core.MailCredentials
	var provider string
	var tokenExpiry sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, provider, email_address, access_token, refresh_token,
		       token_expiry, imap_host, app_password, scan_enabled, llm_enabled
		FROM mail_credentials WHERE user_id = ?
	`, userID).Scan(&creds.UserID, &provider, &creds.EmailAddress,
		&creds.AccessToken, &creds.RefreshToken, &tokenExpiry,
		&creds.IMAPHost, &creds.AppPassword, &creds.ScanEnabled, &creds.LLMEnabled)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	creds.Provider = core.ProviderKind(provider)
	if tokenExpiry.Valid {
		creds.TokenExpiry = tokenExpiry.Time
	}
	return &creds, nil
}

// Save upserts one user's full credential record.
func (s *SQLiteStore) Save(ctx context.Context, creds *core.MailCredentials) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mail_credentials
			(user_id, provider, email_address, access_token, refresh_token,
			 token_expiry, imap_host, app_password, scan_enabled, llm_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			provider = excluded.provider,
			email_address = excluded.email_address,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry,
			imap_host = excluded.imap_host,
			app_password = excluded.app_password,
			scan_enabled = excluded.scan_enabled,
			llm_enabled = excluded.llm_enabled
	`, creds.UserID, string(creds.Provider), creds.EmailAddress,
		creds.AccessToken, creds.RefreshToken, nullableTime(creds.TokenExpiry),
		creds.IMAPHost, creds.AppPassword, creds.ScanEnabled, creds.LLMEnabled)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// SaveToken persists a refreshed OAuth token pair.
func (s *SQLiteStore) SaveToken(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE mail_credentials
		SET access_token = ?, refresh_token = ?, token_expiry = ?
		WHERE user_id = ?
	`, accessToken, refreshToken, expiry, userID)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Watermark returns the user's last completed scan time, or the zero time
// when the user has never scanned.
func (s *SQLiteStore) Watermark(ctx context.Context, userID string) (time.Time, error) {
	var lastScan sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT last_scan_at FROM mail_credentials WHERE user_id = ?
	`, userID).Scan(&lastScan)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query watermark: %w", err)
	}
	if !lastScan.Valid {
		return time.Time{}, nil
	}
	return lastScan.Time, nil
}

// SetWatermark advances the user's watermark.
func (s *SQLiteStore) SetWatermark(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mail_credentials SET last_scan_at = ? WHERE user_id = ?
	`, at, userID)
	if err != nil {
		return fmt.Errorf("failed to set watermark: %w", err)
	}
	return nil
}

// ClearWatermark resets the user's watermark.
func (s *SQLiteStore) ClearWatermark(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mail_credentials SET last_scan_at = NULL WHERE user_id = ?
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear watermark: %w", err)
	}
	return nil
}

// OpenBatch returns the user's unprocessed suggestion batch, or nil.
func (s *SQLiteStore) OpenBatch(ctx context.Context, userID string) (*core.SuggestionBatch, error) {
	var batch core.SuggestionBatch
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, suggestions, processed, created_at
		FROM suggestion_batches WHERE user_id = ? AND processed = 0
	`, userID).Scan(&batch.ID, &batch.UserID, &payload, &batch.Processed, &batch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestion batch: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &batch.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return &batch, nil
}

// Append adds suggestions to the user's open batch, creating one when
// necessary.
func (s *SQLiteStore) Append(ctx context.Context, userID string, suggestions []core.Suggestion) (*core.SuggestionBatch, error) {
	batch, err := s.OpenBatch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		batch = &core.SuggestionBatch{
			ID:        uuid.NewString(),
			UserID:    userID,
			CreatedAt: time.Now(),
		}
		batch.Suggestions = append(batch.Suggestions, suggestions...)
		payload, err := json.Marshal(batch.Suggestions)
		if err != nil {
			return nil, fmt.Errorf("failed to encode suggestions: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO suggestion_batches (id, user_id, suggestions, processed, created_at)
			VALUES (?, ?, ?, 0, ?)
		`, batch.ID, batch.UserID, string(payload), batch.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert suggestion batch: %w", err)
		}
		return batch, nil
	}

	batch.Suggestions = append(batch.Suggestions, suggestions...)
	if err := s.Replace(ctx, batch.ID, batch.Suggestions, false); err != nil {
		return nil, err
	}
	return batch, nil
}

// Replace persists the shrunk (or grown) suggestion list and the processed
// flag in one write.
func (s *SQLiteStore) Replace(ctx context.Context, batchID string, remaining []core.Suggestion, processed bool) error {
	payload, err := json.Marshal(remaining)
	if err != nil {
		return fmt.Errorf("failed to encode suggestions: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE suggestion_batches SET suggestions = ?, processed = ? WHERE id = ?
	`, string(payload), processed, batchID)
	if err != nil {
		return fmt.Errorf("failed to update suggestion batch: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteAll removes every suggestion batch for one user.
func (s *SQLiteStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM suggestion_batches WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete suggestion batches: %w", err)
	}
	return result.RowsAffected()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
