package domain

import "github.com/shopspring/decimal"

// MaxAmountSentinel is the raw input meaning "use the maximum available amount".
const MaxAmountSentinel = "-1"

// ResolvedAmount is a concrete decimal amount derived from user input.
type ResolvedAmount struct {
	Raw   decimal.Decimal
	IsMax bool
}

// IsPositive reports whether the amount can be submitted.
func (a ResolvedAmount) IsPositive() bool {
	return a.Raw.IsPositive()
}

// BaseUnits converts the amount into the integer smallest-unit representation for the given decimals.
func (a ResolvedAmount) BaseUnits(decimals int32) string {
	return a.Raw.Shift(decimals).Truncate(0).String()
}

// CapCheckResult is the outcome of a supply cap evaluation.
// Headroom is only meaningful when Capped is true.
type CapCheckResult struct {
	Exceeded bool
	Capped   bool
	Headroom decimal.Decimal
}
