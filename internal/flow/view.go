package flow

import (
	"github.com/shopspring/decimal"

	"github.com/Proton-105/onramp/internal/domain"
	apperrors "github.com/Proton-105/onramp/internal/errors"
)

// Blocking is the error currently shown to the user.
type Blocking struct {
	Kind      apperrors.Kind
	Message   string
	Retryable bool
}

// View is what the presentation layer renders.
type View struct {
	State         State
	Input         string
	Amount        domain.ResolvedAmount
	FiatValue     decimal.Decimal
	Max           decimal.Decimal
	Symbol        string
	Blocking      *Blocking
	Warning       string
	Session       *domain.OnRampSession
	LastStatus    domain.Status
	Token         domain.TokenDescriptor
	SubmitEnabled bool
}
