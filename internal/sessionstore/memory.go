package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/Proton-105/onramp/internal/domain"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Save inserts or replaces rec.
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.SessionID] = rec
	return nil
}

// Get returns the record for sessionID or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return Record{}, ErrNotFound
	}

	return rec, nil
}

// UpdateStatus records the latest status and outcome for sessionID.
func (s *MemoryStore) UpdateStatus(_ context.Context, sessionID string, status domain.Status, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return ErrNotFound
	}

	rec.Status = status
	rec.Outcome = outcome
	rec.UpdatedAt = s.now()
	s.records[sessionID] = rec

	return nil
}
