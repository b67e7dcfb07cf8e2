// Package session opens on-ramp payment sessions through the wallet capability.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Proton-105/onramp/internal/capability"
	"github.com/Proton-105/onramp/internal/domain"
	apperrors "github.com/Proton-105/onramp/internal/errors"
	"github.com/Proton-105/onramp/pkg/logger"
)

// DefaultTimeout bounds a whole initiation, enable handshake included.
const DefaultTimeout = 60 * time.Second

var initiationRecorder = func(outcome string, duration time.Duration) {}

// RegisterInitiationRecorder allows external packages to observe initiation outcomes.
func RegisterInitiationRecorder(recorder func(outcome string, duration time.Duration)) {
	if recorder == nil {
		initiationRecorder = func(string, time.Duration) {}
		return
	}

	initiationRecorder = recorder
}

// Config tunes an Initiator.
type Config struct {
	CapabilityID string
	Timeout      time.Duration
	EnableRetry  apperrors.RetryPolicy
}

// Request identifies what to buy and where to deliver it.
type Request struct {
	Asset    string
	Amount   domain.ResolvedAmount
	Decimals int32
	Account  string
}

// Initiator opens payment sessions. It never touches UI state; surfacing the redirect is
// left to the caller.
type Initiator struct {
	provider capability.Provider
	symbols  *SymbolMap
	cfg      Config
	log      *slog.Logger
}

// NewInitiator constructs an Initiator bound to provider.
func NewInitiator(provider capability.Provider, symbols *SymbolMap, cfg Config, log *slog.Logger) *Initiator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Initiator{
		provider: provider,
		symbols:  symbols,
		cfg:      cfg,
		log:      log,
	}
}

// Initiate enables the capability and asks it to open a payment session.
//
// Failures are AppErrors: InvalidAmount / InvalidAccount for bad input,
// CapabilityUnavailable when the capability cannot be enabled or reached in time,
// SessionRejected when it answers without a usable session. Cancellation of ctx by the
// caller is returned as the bare context error.
func (i *Initiator) Initiate(ctx context.Context, req Request) (domain.OnRampSession, error) {
	start := time.Now()

	session, err := i.initiate(ctx, req)

	outcome := "created"
	if err != nil {
		outcome = apperrors.KindOf(err).String()
		if ctx.Err() != nil && apperrors.KindOf(err) == apperrors.KindUnknown {
			outcome = "abandoned"
		}
	}
	initiationRecorder(outcome, time.Since(start))

	return session, err
}

func (i *Initiator) initiate(parent context.Context, req Request) (domain.OnRampSession, error) {
	if !req.Amount.IsPositive() {
		return domain.OnRampSession{}, apperrors.NewInvalidAmountError(req.Amount.Raw.String(), nil)
	}

	baseUnits := req.Amount.BaseUnits(req.Decimals)
	if baseUnits == "0" {
		return domain.OnRampSession{}, apperrors.NewInvalidAmountError(req.Amount.Raw.String(), nil)
	}

	if !common.IsHexAddress(req.Account) {
		return domain.OnRampSession{}, apperrors.NewInvalidAccountError(req.Account)
	}
	account := common.HexToAddress(req.Account).Hex()
	asset := i.symbols.ProviderSymbol(req.Asset)

	log := i.log.With(
		slog.String("capability", i.cfg.CapabilityID),
		slog.String("asset", asset),
		slog.String("amount", baseUnits),
	)
	if id := logger.CorrelationIDFromContext(parent); id != "" {
		log = log.With(slog.String("correlation_id", id))
	}

	ctx, cancel := context.WithTimeout(parent, i.cfg.Timeout)
	defer cancel()

	err := apperrors.WithRetryPolicy(ctx, i.cfg.EnableRetry, func() error {
		if err := i.provider.Enable(ctx, i.cfg.CapabilityID); err != nil {
			appErr := apperrors.NewCapabilityUnavailableError(i.cfg.CapabilityID, err)
			if capability.IsRemote(err) || ctx.Err() != nil {
				appErr.Retryable = false
			}
			return appErr
		}
		return nil
	})
	if err != nil {
		if parent.Err() != nil {
			return domain.OnRampSession{}, parent.Err()
		}
		if apperrors.KindOf(err) == apperrors.KindUnknown {
			err = apperrors.NewCapabilityUnavailableError(i.cfg.CapabilityID, err)
		}
		log.Warn("capability enable failed", slog.Any("error", err))
		return domain.OnRampSession{}, err
	}

	raw, err := i.provider.Invoke(ctx, i.cfg.CapabilityID, capability.InitiateOnRamp(baseUnits, asset, account))
	if err != nil {
		switch {
		case parent.Err() != nil:
			return domain.OnRampSession{}, parent.Err()
		case capability.IsRemote(err):
			log.Warn("capability rejected on-ramp", slog.Any("error", err))
			return domain.OnRampSession{}, apperrors.NewSessionRejectedError("capability returned an error", err)
		case errors.Is(err, context.DeadlineExceeded):
			log.Warn("on-ramp initiation timed out", slog.Duration("timeout", i.cfg.Timeout))
			return domain.OnRampSession{}, apperrors.NewCapabilityUnavailableError(i.cfg.CapabilityID, err)
		default:
			log.Warn("on-ramp initiation failed", slog.Any("error", err))
			return domain.OnRampSession{}, apperrors.NewCapabilityUnavailableError(i.cfg.CapabilityID, err)
		}
	}

	session, err := capability.DecodeSession(raw)
	if err != nil {
		log.Warn("unusable on-ramp session", slog.Any("error", err))
		return domain.OnRampSession{}, apperrors.NewSessionRejectedError("no usable session", err)
	}

	log.Info("on-ramp session created", slog.String("session_id", session.ID))

	return session, nil
}
