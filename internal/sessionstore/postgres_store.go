package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/onramp/internal/domain"
)

// PostgresStore persists records in the onramp_sessions table.
type PostgresStore struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a SQL-backed Store. The schema is created by the migrations in
// internal/database.
func NewPostgresStore(db *sql.DB, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresStore{
		db:  db,
		log: log,
	}
}

// Save upserts rec.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	const query = `
		INSERT INTO onramp_sessions (session_id, attempt_id, redirect_url, account, asset, amount, status, outcome, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			attempt_id = EXCLUDED.attempt_id,
			redirect_url = EXCLUDED.redirect_url,
			account = EXCLUDED.account,
			asset = EXCLUDED.asset,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			outcome = EXCLUDED.outcome,
			updated_at = NOW()
	`

	if _, err := s.db.ExecContext(
		ctx,
		query,
		rec.SessionID,
		rec.AttemptID,
		rec.RedirectURL,
		rec.Account,
		rec.Asset,
		rec.Amount,
		string(rec.Status),
		string(rec.Outcome),
	); err != nil {
		s.log.Error("failed to save session record", slog.String("session_id", rec.SessionID), slog.Any("error", err))
		return fmt.Errorf("insert session record: %w", err)
	}

	return nil
}

// Get loads the record for sessionID or returns ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (Record, error) {
	const query = `
		SELECT session_id, attempt_id, redirect_url, account, asset, amount, status, outcome, created_at, updated_at
		FROM onramp_sessions
		WHERE session_id = $1
	`

	var (
		rec     Record
		status  string
		outcome string
	)
	if err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&rec.SessionID,
		&rec.AttemptID,
		&rec.RedirectURL,
		&rec.Account,
		&rec.Asset,
		&rec.Amount,
		&status,
		&outcome,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("select session record: %w", err)
	}

	rec.Status = domain.Status(status)
	rec.Outcome = Outcome(outcome)

	return rec, nil
}

// UpdateStatus records the latest status and outcome for sessionID.
func (s *PostgresStore) UpdateStatus(ctx context.Context, sessionID string, status domain.Status, outcome Outcome) error {
	const query = `
		UPDATE onramp_sessions
		SET status = $2, outcome = $3, updated_at = NOW()
		WHERE session_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, sessionID, string(status), string(outcome))
	if err != nil {
		s.log.Error("failed to update session record", slog.String("session_id", sessionID), slog.Any("error", err))
		return fmt.Errorf("update session record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session record: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
