package capability

import (
	"context"
	"encoding/json"

	apperrors "github.com/Proton-105/onramp/internal/errors"
)

type breakerProvider struct {
	next Provider
	cb   *apperrors.CircuitBreaker
}

// WithBreaker guards next with cb. Only transport failures count against the breaker:
// errors answered by the capability itself and caller cancellations do not.
func WithBreaker(next Provider, cb *apperrors.CircuitBreaker) Provider {
	if cb == nil {
		return next
	}

	return &breakerProvider{next: next, cb: cb}
}

func (b *breakerProvider) Enable(ctx context.Context, capabilityID string) error {
	return b.call(ctx, func() error {
		return b.next.Enable(ctx, capabilityID)
	})
}

func (b *breakerProvider) Invoke(ctx context.Context, capabilityID string, req Request) (json.RawMessage, error) {
	var result json.RawMessage
	err := b.call(ctx, func() error {
		var err error
		result, err = b.next.Invoke(ctx, capabilityID, req)
		return err
	})
	return result, err
}

func (b *breakerProvider) HealthCheck(ctx context.Context) error {
	if hc, ok := b.next.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (b *breakerProvider) call(ctx context.Context, fn func() error) error {
	var passthrough error
	err := b.cb.Call(func() error {
		err := fn()
		if err != nil && (IsRemote(err) || ctx.Err() != nil) {
			passthrough = err
			return nil
		}
		return err
	})
	if passthrough != nil {
		return passthrough
	}
	return err
}
