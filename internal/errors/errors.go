package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Kind tags an AppError with its place in the on-ramp error taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidAmount
	KindInvalidAccount
	KindCapExceeded
	KindCapabilityUnavailable
	KindSessionRejected
	KindPaymentFailed
	KindPollingAbandoned
)

func (k Kind) String() string {
	switch k {
	case KindInvalidAmount:
		return "invalid_amount"
	case KindInvalidAccount:
		return "invalid_account"
	case KindCapExceeded:
		return "cap_exceeded"
	case KindCapabilityUnavailable:
		return "capability_unavailable"
	case KindSessionRejected:
		return "session_rejected"
	case KindPaymentFailed:
		return "payment_failed"
	case KindPollingAbandoned:
		return "polling_abandoned"
	default:
		return "unknown"
	}
}

// UserMessage is the blocking message rendered for a kind.
func UserMessage(k Kind) string {
	switch k {
	case KindInvalidAmount:
		return "Enter a valid amount"
	case KindInvalidAccount:
		return "Connected account is not a valid address"
	case KindCapExceeded:
		return "Cap reached. Lower supply amount"
	case KindCapabilityUnavailable:
		return "Wallet on-ramp is unavailable. Try again"
	case KindSessionRejected:
		return "The payment provider did not open a session. Try again"
	case KindPaymentFailed:
		return "The payment failed. Try again"
	case KindPollingAbandoned:
		return "Payment status is unknown. Funds may still be in flight, check with the payment provider"
	case KindUnknown:
		return "Something went wrong. Try again"
	}

	return "Something went wrong. Try again"
}

type AppError struct {
	Kind        Kind
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// Is matches AppErrors by kind so callers can compare against the sentinel values below.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) || other == nil || e == nil {
		return false
	}

	return e.Kind == other.Kind && other.Message == "" && other.cause == nil
}

var (
	ErrInvalidAmount         = &AppError{Kind: KindInvalidAmount}
	ErrInvalidAccount        = &AppError{Kind: KindInvalidAccount}
	ErrCapExceeded           = &AppError{Kind: KindCapExceeded}
	ErrCapabilityUnavailable = &AppError{Kind: KindCapabilityUnavailable}
	ErrSessionRejected       = &AppError{Kind: KindSessionRejected}
	ErrPaymentFailed         = &AppError{Kind: KindPaymentFailed}
	ErrPollingAbandoned      = &AppError{Kind: KindPollingAbandoned}
)

// KindOf extracts the taxonomy tag from err, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind
	}

	return KindUnknown
}

func NewInvalidAmountError(raw string, cause error) *AppError {
	return &AppError{
		Kind:        KindInvalidAmount,
		Code:        "E100",
		Message:     fmt.Sprintf("invalid amount %q", raw),
		UserMessage: UserMessage(KindInvalidAmount),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewInvalidAccountError(account string) *AppError {
	return &AppError{
		Kind:        KindInvalidAccount,
		Code:        "E110",
		Message:     fmt.Sprintf("invalid destination account %q", account),
		UserMessage: UserMessage(KindInvalidAccount),
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewCapExceededError(amount, headroom string) *AppError {
	return &AppError{
		Kind:        KindCapExceeded,
		Code:        "E200",
		Message:     fmt.Sprintf("amount %s exceeds supply cap headroom %s", amount, headroom),
		UserMessage: UserMessage(KindCapExceeded),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewCapabilityUnavailableError(capabilityID string, cause error) *AppError {
	return &AppError{
		Kind:        KindCapabilityUnavailable,
		Code:        "E300",
		Message:     fmt.Sprintf("capability %s unavailable", capabilityID),
		UserMessage: UserMessage(KindCapabilityUnavailable),
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewSessionRejectedError(msg string, cause error) *AppError {
	return &AppError{
		Kind:        KindSessionRejected,
		Code:        "E400",
		Message:     fmt.Sprintf("session rejected: %s", msg),
		UserMessage: UserMessage(KindSessionRejected),
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

func NewPaymentFailedError(paymentID string) *AppError {
	return &AppError{
		Kind:        KindPaymentFailed,
		Code:        "E500",
		Message:     fmt.Sprintf("payment %s failed", paymentID),
		UserMessage: UserMessage(KindPaymentFailed),
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewPollingAbandonedError(paymentID string, polls int, cause error) *AppError {
	return &AppError{
		Kind:        KindPollingAbandoned,
		Code:        "E600",
		Message:     fmt.Sprintf("status polling for payment %s abandoned after %d polls", paymentID, polls),
		UserMessage: UserMessage(KindPollingAbandoned),
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}
