// Package caps evaluates reserve supply caps.
package caps

import (
	"github.com/Proton-105/onramp/internal/domain"
)

// Validator decides whether an amount would breach a reserve's supply cap.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() Validator {
	return Validator{}
}

// Check reports whether supplying amount would exceed the reserve's remaining cap.
// An uncapped reserve is never exceeded; an amount equal to the headroom is allowed.
func (Validator) Check(amount domain.ResolvedAmount, reserve domain.ReserveSnapshot) domain.CapCheckResult {
	if !reserve.Capped() {
		return domain.CapCheckResult{}
	}

	headroom := reserve.Headroom()

	return domain.CapCheckResult{
		Exceeded: amount.Raw.GreaterThan(headroom),
		Capped:   true,
		Headroom: headroom,
	}
}
