package capability

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/Proton-105/onramp/internal/domain"
)

// ErrMalformedResponse marks a capability response that does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed capability response")

type sessionPayload struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirectUrl"`
}

type statusPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// DecodeSession validates an initiateOnRamp result: both fields present and the redirect
// an absolute http(s) URL.
func DecodeSession(raw json.RawMessage) (domain.OnRampSession, error) {
	if isEmpty(raw) {
		return domain.OnRampSession{}, fmt.Errorf("%w: empty session", ErrMalformedResponse)
	}

	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.OnRampSession{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if payload.ID == "" {
		return domain.OnRampSession{}, fmt.Errorf("%w: session id missing", ErrMalformedResponse)
	}

	redirect, err := url.Parse(payload.RedirectURL)
	if err != nil || redirect.Host == "" || (redirect.Scheme != "https" && redirect.Scheme != "http") {
		return domain.OnRampSession{}, fmt.Errorf("%w: redirect url %q", ErrMalformedResponse, payload.RedirectURL)
	}

	return domain.OnRampSession{ID: payload.ID, RedirectURL: redirect.String()}, nil
}

// DecodeStatus validates a queryStatus result for paymentID. A missing id is filled in; a
// different id is rejected. Unrecognised status strings become StatusUnknown.
func DecodeStatus(raw json.RawMessage, paymentID string) (domain.PaymentStatus, error) {
	if isEmpty(raw) {
		return domain.PaymentStatus{}, fmt.Errorf("%w: empty status", ErrMalformedResponse)
	}

	var payload statusPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.PaymentStatus{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if payload.Status == "" {
		return domain.PaymentStatus{}, fmt.Errorf("%w: status missing", ErrMalformedResponse)
	}

	if payload.ID != "" && payload.ID != paymentID {
		return domain.PaymentStatus{}, fmt.Errorf("%w: status for %q while polling %q", ErrMalformedResponse, payload.ID, paymentID)
	}

	return domain.PaymentStatus{ID: paymentID, Status: domain.ParseStatus(payload.Status)}, nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
