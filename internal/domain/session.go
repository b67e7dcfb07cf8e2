package domain

import "strings"

// OnRampSession is the payment session opened by the external capability.
type OnRampSession struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirectUrl"`
}

// Status is the lifecycle state of an external payment.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusReleased Status = "RELEASED"
	StatusFailed   Status = "FAILED"
	StatusUnknown  Status = "UNKNOWN"
)

// ParseStatus maps a provider status string onto a known Status; unrecognised values become StatusUnknown.
func ParseStatus(raw string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending
	case StatusReleased:
		return StatusReleased
	case StatusFailed:
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Terminal reports whether no further status change is expected.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusFailed
}

// PaymentStatus is a single status observation for a session.
type PaymentStatus struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}
