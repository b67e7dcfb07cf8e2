// Package amount turns raw user input into concrete supply amounts.
package amount

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/onramp/internal/domain"
	apperrors "github.com/Proton-105/onramp/internal/errors"
)

// DefaultGasReserve is the native amount kept back when the maximum is supplied.
var DefaultGasReserve = decimal.RequireFromString("0.001")

// Resolution is a resolved amount together with its fiat value and the ceiling it was bounded by.
type Resolution struct {
	Amount    domain.ResolvedAmount
	FiatValue decimal.Decimal
	Max       decimal.Decimal
}

// Resolver converts raw amounts, including the max sentinel, into decimals.
type Resolver struct {
	gasReserve decimal.Decimal
}

// NewResolver builds a Resolver that keeps gasReserve of the native asset in the wallet when
// the maximum is requested for a native reserve.
func NewResolver(gasReserve decimal.Decimal) *Resolver {
	if gasReserve.IsNegative() {
		gasReserve = decimal.Zero
	}

	return &Resolver{gasReserve: gasReserve}
}

// Max returns the largest amount that may be supplied: the wallet balance (less the gas
// reserve for native assets), bounded by the reserve's remaining cap and truncated to the
// reserve's decimals. It is never negative.
func (r *Resolver) Max(balance decimal.Decimal, reserve domain.ReserveSnapshot) decimal.Decimal {
	ceiling := balance
	if reserve.IsNative() {
		ceiling = ceiling.Sub(r.gasReserve)
	}

	if reserve.Capped() {
		ceiling = decimal.Min(ceiling, reserve.Headroom())
	}

	if ceiling.IsNegative() {
		return decimal.Zero
	}

	return ceiling.Truncate(reserve.Decimals)
}

// Resolve parses raw into a ResolvedAmount. The max sentinel resolves to exactly Max.
// Anything that is not a non-negative decimal representable with the reserve's decimals
// fails with an InvalidAmount error.
func (r *Resolver) Resolve(raw string, balance decimal.Decimal, reserve domain.ReserveSnapshot, market domain.Market) (Resolution, error) {
	ceiling := r.Max(balance, reserve)
	trimmed := strings.TrimSpace(raw)

	var resolved domain.ResolvedAmount
	switch trimmed {
	case domain.MaxAmountSentinel:
		resolved = domain.ResolvedAmount{Raw: ceiling, IsMax: true}
	case "":
		return Resolution{Max: ceiling}, apperrors.NewInvalidAmountError(raw, nil)
	default:
		value, err := decimal.NewFromString(trimmed)
		if err != nil {
			return Resolution{Max: ceiling}, apperrors.NewInvalidAmountError(raw, err)
		}
		if value.IsNegative() {
			return Resolution{Max: ceiling}, apperrors.NewInvalidAmountError(raw, nil)
		}
		if !value.Equal(value.Truncate(reserve.Decimals)) {
			return Resolution{Max: ceiling}, apperrors.NewInvalidAmountError(raw, nil)
		}
		resolved = domain.ResolvedAmount{Raw: value}
	}

	return Resolution{
		Amount:    resolved,
		FiatValue: FiatValue(resolved.Raw, reserve, market),
		Max:       ceiling,
	}, nil
}

// FiatValue converts amount into USD: amount × price in the market reference currency ×
// reference price in USD, scaled down by the USD reference decimals.
func FiatValue(amount decimal.Decimal, reserve domain.ReserveSnapshot, market domain.Market) decimal.Decimal {
	return amount.
		Mul(reserve.PriceInReferenceCurrency).
		Mul(market.ReferencePriceInUSD).
		Shift(-domain.USDReferenceDecimals)
}
