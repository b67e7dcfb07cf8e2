package main

import (
	"bytes"
	"context"
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
	"github.com/Proton-105/onramp/internal/flow"
	"github.com/Proton-105/onramp/internal/poller"
	"github.com/Proton-105/onramp/internal/session"
)

const capabilityID = "local:http://localhost:8080"

func newTestController(t *testing.T, provider *capabilitytest.MockProvider, out io.Writer) *flow.Controller {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := flow.New(flow.Params{
		Reserve: domain.ReserveSnapshot{
			UnderlyingAsset:          "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
			Symbol:                   "WMATIC",
			Decimals:                 18,
			SupplyCap:                decimal.RequireFromString("1000"),
			TotalLiquidity:           decimal.RequireFromString("950"),
			PriceInReferenceCurrency: decimal.RequireFromString("0.8"),
		},
		Market:   domain.Market{NativeSymbol: "MATIC", ReferencePriceInUSD: decimal.RequireFromString("100000000")},
		Balances: domain.Balances{Token: decimal.RequireFromString("40")},
		Account:  "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
	}, flow.Dependencies{
		Initiator: session.NewInitiator(provider, session.NewSymbolMap("MATIC", nil), session.Config{
			CapabilityID: capabilityID,
			Timeout:      time.Second,
		}, log),
		Poller: poller.New(provider, poller.Config{
			CapabilityID: capabilityID,
			Interval:     5 * time.Millisecond,
		}, log),
		Opener: redirectOpener(out, true),
		Log:    log,
	})
	t.Cleanup(ctrl.Close)

	return ctrl
}

func TestAttempt_Released(t *testing.T) {
	provider := &capabilitytest.MockProvider{}
	provider.On("Enable", mock.Anything, capabilityID).Return(nil).Once()
	provider.On("Invoke", mock.Anything, capabilityID, capability.Request{
		Method:        capability.MethodInitiateOnRamp,
		Amount:        "30000000000000000000",
		Asset:         "MATIC",
		WalletAddress: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	}).Return(capabilitytest.Raw(`{"id":"s1","redirectUrl":"https://pay/s1"}`), nil).Once()
	provider.On("Invoke", mock.Anything, capabilityID, capabilitytest.QueryFor("s1")).
		Return(capabilitytest.Raw(`{"id":"s1","status":"PENDING"}`), nil).Once()
	provider.On("Invoke", mock.Anything, capabilityID, capabilitytest.QueryFor("s1")).
		Return(capabilitytest.Raw(`{"id":"s1","status":"RELEASED"}`), nil).Once()

	var buf bytes.Buffer
	out := &syncWriter{w: &buf}
	ctrl := newTestController(t, provider, out)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, attempt(ctx, ctrl, "30", out))
	assert.Equal(t, flow.StateReleased, ctrl.State())

	out.mu.Lock()
	defer out.mu.Unlock()
	assert.Contains(t, buf.String(), "Complete the payment at https://pay/s1")
	assert.Contains(t, buf.String(), "Supplied 30 WMATIC")
	provider.AssertExpectations(t)
}

func TestAttempt_CapExceeded(t *testing.T) {
	provider := &capabilitytest.MockProvider{}

	var out bytes.Buffer
	ctrl := newTestController(t, provider, &out)

	err := attempt(context.Background(), ctrl, "100", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cap reached")
	provider.AssertNotCalled(t, "Enable", mock.Anything, mock.Anything)
}

func TestAttempt_ZeroAmount(t *testing.T) {
	var out bytes.Buffer
	ctrl := newTestController(t, &capabilitytest.MockProvider{}, &out)

	err := attempt(context.Background(), ctrl, "0", &out)
	assert.ErrorContains(t, err, "cannot be supplied")
}
