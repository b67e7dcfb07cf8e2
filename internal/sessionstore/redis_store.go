package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/onramp/internal/domain"
	appredis "github.com/Proton-105/onramp/pkg/redis"
)

const (
	sessionKeyPattern = "onramp:session:%s"
	// DefaultTTL keeps records long enough to reconcile a payment reported as still in flight.
	DefaultTTL = 7 * 24 * time.Hour
)

// RedisStore persists records as JSON documents with a TTL.
type RedisStore struct {
	client appredis.KV
	ttl    time.Duration
	log    *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed Store.
func NewRedisStore(client appredis.KV, ttl time.Duration, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Save writes rec, resetting its TTL.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(rec.SessionID), data, s.ttl); err != nil {
		s.log.Error("failed to save session record", slog.String("session_id", rec.SessionID), slog.Any("error", err))
		return fmt.Errorf("save session record: %w", err)
	}

	return nil
}

// Get loads the record for sessionID or returns ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (Record, error) {
	value, err := s.client.Get(ctx, sessionKey(sessionID))
	if err != nil {
		if appredis.IsNil(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get session record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		s.log.Error("failed to decode session record", slog.String("session_id", sessionID), slog.Any("error", err))
		return Record{}, fmt.Errorf("decode session record: %w", err)
	}

	return rec, nil
}

// UpdateStatus rewrites the stored record with the new status and outcome.
func (s *RedisStore) UpdateStatus(ctx context.Context, sessionID string, status domain.Status, outcome Outcome) error {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	rec.Status = status
	rec.Outcome = outcome

	return s.Save(ctx, rec)
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf(sessionKeyPattern, sessionID)
}
