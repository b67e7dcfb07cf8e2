package capability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Proton-105/onramp/internal/capability"
	"github.com/Proton-105/onramp/internal/capability/capabilitytest"
	apperrors "github.com/Proton-105/onramp/internal/errors"
)

func TestWithBreaker_TripsOnTransportFailures(t *testing.T) {
	ctx := context.Background()
	transport := errors.New("connection reset")

	provider := &capabilitytest.MockProvider{}
	provider.On("Enable", mock.Anything, "snap").Return(transport).Times(2)

	cb := apperrors.NewCircuitBreakerWithConfig(apperrors.BreakerConfig{MinRequests: 2, OpenTimeout: time.Hour})
	guarded := capability.WithBreaker(provider, cb)

	assert.ErrorIs(t, guarded.Enable(ctx, "snap"), transport)
	assert.ErrorIs(t, guarded.Enable(ctx, "snap"), transport)
	assert.ErrorIs(t, guarded.Enable(ctx, "snap"), apperrors.ErrCircuitOpen)

	provider.AssertNumberOfCalls(t, "Enable", 2)
}

func TestWithBreaker_IgnoresRemoteErrors(t *testing.T) {
	ctx := context.Background()
	declined := &capability.RemoteError{Code: 4001, Message: "user rejected"}

	provider := &capabilitytest.MockProvider{}
	provider.On("Invoke", mock.Anything, "snap", capabilitytest.InitiateRequest()).Return(nil, declined)

	cb := apperrors.NewCircuitBreakerWithConfig(apperrors.BreakerConfig{MinRequests: 1, OpenTimeout: time.Hour})
	guarded := capability.WithBreaker(provider, cb)

	for i := 0; i < 3; i++ {
		_, err := guarded.Invoke(ctx, "snap", capability.InitiateOnRamp("1", "USDC", "0xabc"))
		assert.True(t, capability.IsRemote(err))
	}

	assert.Equal(t, apperrors.StateClosed, cb.State())
	provider.AssertNumberOfCalls(t, "Invoke", 3)
}

func TestWithBreaker_NilBreakerReturnsProvider(t *testing.T) {
	provider := &capabilitytest.MockProvider{}
	assert.Same(t, provider, capability.WithBreaker(provider, nil))
}
