package errors

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	MaxRetries        = 3
	InitialBackoff    = 100 * time.Millisecond
	MaxBackoff        = 5 * time.Second
	BackoffMultiplier = 2.0
)

// RetryPolicy bounds WithRetryPolicy. Zero fields fall back to the package defaults.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func WithRetry(ctx context.Context, fn func() error) error {
	return WithRetryPolicy(ctx, RetryPolicy{}, fn)
}

func WithRetryPolicy(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if fn == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	policy = policy.withDefaults()

	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if err != nil {
				return err
			}
			return ctx.Err()
		default:
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}

		if attempt == policy.MaxRetries {
			return err
		}

		timer := time.NewTimer(policy.backoff(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}

	return err
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}

	return false
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = MaxRetries
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = MaxBackoff
	}

	return p
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(BackoffMultiplier, float64(attempt-1))
	backoff := time.Duration(delay)
	if backoff > p.MaxBackoff {
		return p.MaxBackoff
	}

	return backoff
}
