// Package capabilitytest provides a testify mock of capability.Provider.
package capabilitytest

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/Proton-105/onramp/internal/capability"
)

// MockProvider is a capability.Provider driven by testify expectations.
type MockProvider struct {
	mock.Mock
}

var _ capability.Provider = (*MockProvider)(nil)

func (m *MockProvider) Enable(ctx context.Context, capabilityID string) error {
	args := m.Called(ctx, capabilityID)
	return args.Error(0)
}

func (m *MockProvider) Invoke(ctx context.Context, capabilityID string, req capability.Request) (json.RawMessage, error) {
	args := m.Called(ctx, capabilityID, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

// Raw is a convenience for building mocked responses.
func Raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

// QueryFor matches a queryStatus request for paymentID.
func QueryFor(paymentID string) interface{} {
	return mock.MatchedBy(func(req capability.Request) bool {
		return req.Method == capability.MethodQueryStatus && req.PaymentID == paymentID
	})
}

// InitiateRequest matches any initiateOnRamp request.
func InitiateRequest() interface{} {
	return mock.MatchedBy(func(req capability.Request) bool {
		return req.Method == capability.MethodInitiateOnRamp
	})
}
