// Package sessionstore keeps a ledger of on-ramp sessions so abandoned payments can be
// looked up after the flow that opened them is gone.
package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/Proton-105/onramp/internal/domain"
)

// ErrNotFound indicates that no record exists for a session id.
var ErrNotFound = errors.New("session record not found")

// Outcome is how the attempt that owned a session ended.
type Outcome string

const (
	OutcomeOpen      Outcome = "open"
	OutcomeReleased  Outcome = "released"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomeCancelled Outcome = "cancelled"
)

// Record is one ledger entry.
type Record struct {
	SessionID   string        `json:"session_id"`
	AttemptID   string        `json:"attempt_id"`
	RedirectURL string        `json:"redirect_url"`
	Account     string        `json:"account"`
	Asset       string        `json:"asset"`
	Amount      string        `json:"amount"`
	Status      domain.Status `json:"status"`
	Outcome     Outcome       `json:"outcome"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Store persists session records.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, sessionID string) (Record, error)
	UpdateStatus(ctx context.Context, sessionID string, status domain.Status, outcome Outcome) error
}
