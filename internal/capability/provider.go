// Package capability describes the wallet capability protocol used to open and track
// on-ramp payment sessions, independent of how the wallet is reached.
package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	MethodInitiateOnRamp = "initiateOnRamp"
	MethodQueryStatus    = "queryStatus"
)

// Provider is the request/response channel to a wallet capability. Enable must succeed
// before Invoke is used for a capability.
type Provider interface {
	Enable(ctx context.Context, capabilityID string) error
	Invoke(ctx context.Context, capabilityID string, req Request) (json.RawMessage, error)
}

// HealthChecker is implemented by providers that can report transport health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Request is the payload handed to the capability.
type Request struct {
	Method        string `json:"method"`
	Amount        string `json:"amount,omitempty"`
	Asset         string `json:"asset,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
	PaymentID     string `json:"paymentId,omitempty"`
}

// InitiateOnRamp builds the request that opens a payment session. amount is in base units.
func InitiateOnRamp(amount, asset, walletAddress string) Request {
	return Request{
		Method:        MethodInitiateOnRamp,
		Amount:        amount,
		Asset:         asset,
		WalletAddress: walletAddress,
	}
}

// QueryStatus builds the request that fetches a payment's status.
func QueryStatus(paymentID string) Request {
	return Request{
		Method:    MethodQueryStatus,
		PaymentID: paymentID,
	}
}

// RemoteError is returned when the capability answered a call with an error, as opposed
// to the call failing to reach it.
type RemoteError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("capability error %d: %s", e.Code, e.Message)
}

// IsRemote reports whether err carries a RemoteError.
func IsRemote(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote)
}
