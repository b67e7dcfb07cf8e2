package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/onramp/internal/capability"
	"github.com/Proton-105/onramp/internal/capability/capabilitytest"
	"github.com/Proton-105/onramp/internal/domain"
	apperrors "github.com/Proton-105/onramp/internal/errors"
)

const (
	capabilityID    = "local:http://localhost:8080"
	account         = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	checksumAccount = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newInitiator(provider capability.Provider, timeout time.Duration) *Initiator {
	return NewInitiator(provider, NewSymbolMap("MATIC", nil), Config{
		CapabilityID: capabilityID,
		Timeout:      timeout,
		EnableRetry:  apperrors.RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}, testLogger())
}

func maticRequest(amount string) Request {
	return Request{
		Asset:    "WMATIC",
		Amount:   domain.ResolvedAmount{Raw: decimal.RequireFromString(amount)},
		Decimals: 18,
		Account:  account,
	}
}

func TestInitiator_Initiate(t *testing.T) {
	transport := errors.New("connection refused")
	declined := &capability.RemoteError{Code: 4001, Message: "User rejected the request."}

	testCases := []struct {
		name        string
		setupMocks  func(p *capabilitytest.MockProvider)
		expected    domain.OnRampSession
		expectedErr error
	}{
		{
			name: "session created",
			setupMocks: func(p *capabilitytest.MockProvider) {
				p.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
				p.On("Invoke", mock.Anything, capabilityID, capability.Request{
					Method:        capability.MethodInitiateOnRamp,
					Amount:        "30000000000000000000",
					Asset:         "MATIC",
					WalletAddress: checksumAccount,
				}).Return(capabilitytest.Raw(`{"id":"s1","redirectUrl":"https://pay/s1"}`), nil).Once()
			},
			expected: domain.OnRampSession{ID: "s1", RedirectURL: "https://pay/s1"},
		},
		{
			name: "transient enable failure is retried",
			setupMocks: func(p *capabilitytest.MockProvider) {
				p.On("Enable", mock.Anything, capabilityID).Return(transport).Once()
				p.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
				p.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).
					Return(capabilitytest.Raw(`{"id":"s2","redirectUrl":"https://pay/s2"}`), nil).Once()
			},
			expected: domain.OnRampSession{ID: "s2", RedirectURL: "https://pay/s2"},
		},
		{
			name: "enable keeps failing",
			setupMocks: func(p *capabilitytest.MockProvider) {
				p.On("Enable", mock.Anything, capabilityID).Return(transport).Times(3)
			},
			expectedErr: apperrors.ErrCapabilityUnavailable,
		},
		{
			name: "enable declined by wallet is not retried",
			setupMocks: func(p *capabilitytest.MockProvider) {
				p.On("Enable", mock.Anything, capabilityID).Return(declined).Once()
			},
			expectedErr: apperrors.ErrCapabilityUnavailable,
		},
		{
			name: "capability answers with an error",
			setupMocks: func(p *capabilitytest.MockProvider) {
				p.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
				p.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).Return(nil, declined).Once()
			},
			expectedErr: apperrors.ErrSessionRejected,
		},
		{
			name: "capability returns no session",
			setupMocks: func(p *capabilitytest.MockProvider) {
				p.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
				p.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).
					Return(capabilitytest.Raw(`null`), nil).Once()
			},
			expectedErr: apperrors.ErrSessionRejected,
		},
		{
			name: "capability returns a session without redirect",
			setupMocks: func(p *capabilitytest.MockProvider) {
				p.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
				p.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).
					Return(capabilitytest.Raw(`{"id":"s3"}`), nil).Once()
			},
			expectedErr: apperrors.ErrSessionRejected,
		},
		{
			name: "transport failure on invoke",
			setupMocks: func(p *capabilitytest.MockProvider) {
				p.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
				p.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).Return(nil, transport).Once()
			},
			expectedErr: apperrors.ErrCapabilityUnavailable,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			provider := &capabilitytest.MockProvider{}
			tc.setupMocks(provider)

			session, err := newInitiator(provider, time.Second).Initiate(context.Background(), maticRequest("30"))

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.expectedErr), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, session)
			}

			provider.AssertExpectations(t)
		})
	}
}

func TestInitiator_Timeout(t *testing.T) {
	provider := &capabilitytest.MockProvider{}
	provider.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
	provider.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	_, err := newInitiator(provider, 20*time.Millisecond).Initiate(context.Background(), maticRequest("1"))

	require.Error(t, err)
	assert.Equal(t, apperrors.KindCapabilityUnavailable, apperrors.KindOf(err))
	provider.AssertExpectations(t)
}

func TestInitiator_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	provider := &capabilitytest.MockProvider{}
	provider.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
	provider.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).
		Run(func(args mock.Arguments) {
			cancel()
		}).
		Return(nil, context.Canceled).Once()

	_, err := newInitiator(provider, time.Second).Initiate(ctx, maticRequest("1"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, apperrors.KindUnknown, apperrors.KindOf(err))
}

func TestInitiator_InputValidation(t *testing.T) {
	provider := &capabilitytest.MockProvider{}
	initiator := newInitiator(provider, time.Second)
	ctx := context.Background()

	_, err := initiator.Initiate(ctx, maticRequest("0"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidAmount))

	dust := maticRequest("0.0000001")
	dust.Decimals = 6
	_, err = initiator.Initiate(ctx, dust)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidAmount))

	badAccount := maticRequest("1")
	badAccount.Account = "bob.eth"
	_, err = initiator.Initiate(ctx, badAccount)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidAccount))

	provider.AssertNotCalled(t, "Enable", mock.Anything, mock.Anything)
}

func TestInitiator_RecordsOutcome(t *testing.T) {
	var outcomes []string
	RegisterInitiationRecorder(func(outcome string, _ time.Duration) {
		outcomes = append(outcomes, outcome)
	})
	t.Cleanup(func() { RegisterInitiationRecorder(nil) })

	provider := &capabilitytest.MockProvider{}
	provider.On("Enable", mock.Anything, capabilityID).Return(nil)
	provider.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).
		Return(capabilitytest.Raw(`{"id":"s1","redirectUrl":"https://pay/s1"}`), nil).Once()
	provider.On("Invoke", mock.Anything, capabilityID, capabilitytest.InitiateRequest()).
		Return(capabilitytest.Raw(`{}`), nil).Once()

	initiator := newInitiator(provider, time.Second)
	_, _ = initiator.Initiate(context.Background(), maticRequest("1"))
	_, _ = initiator.Initiate(context.Background(), maticRequest("1"))

	assert.Equal(t, []string{"created", "session_rejected"}, outcomes)
}
