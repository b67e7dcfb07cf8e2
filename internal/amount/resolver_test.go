package amount

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/onramp/internal/domain"
	apperrors "github.com/Proton-105/onramp/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usdcReserve(supplyCap, liquidity string) domain.ReserveSnapshot {
	return domain.ReserveSnapshot{
		UnderlyingAsset:          "0x2791bca1f2de4661ed88a30c99a7a9449aa84174",
		Symbol:                   "USDC",
		Decimals:                 6,
		SupplyCap:                dec(supplyCap),
		TotalLiquidity:           dec(liquidity),
		PriceInReferenceCurrency: dec("1.0002"),
	}
}

var market = domain.Market{NativeSymbol: "MATIC", ReferencePriceInUSD: dec("100000000")}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(dec("0.001"))

	tests := []struct {
		name     string
		raw      string
		balance  string
		reserve  domain.ReserveSnapshot
		expected string
		isMax    bool
		fiat     string
	}{
		{name: "plain amount", raw: "30", balance: "500", reserve: usdcReserve("1000", "950"), expected: "30", fiat: "30.006"},
		{name: "amount above balance is still resolved", raw: "800", balance: "500", reserve: usdcReserve("0", "0"), expected: "800", fiat: "800.16"},
		{name: "max bounded by headroom", raw: "-1", balance: "500", reserve: usdcReserve("1000", "950"), expected: "50", isMax: true, fiat: "50.01"},
		{name: "max bounded by balance", raw: "-1", balance: "20.5", reserve: usdcReserve("1000", "950"), expected: "20.5", isMax: true, fiat: "20.5041"},
		{name: "max uncapped uses balance", raw: "-1", balance: "1234.567891", reserve: usdcReserve("0", "950"), expected: "1234.567891", isMax: true, fiat: "1234.8148045782"},
		{name: "max never negative", raw: "-1", balance: "10", reserve: usdcReserve("1000", "1200"), expected: "0", isMax: true, fiat: "0"},
		{name: "zero", raw: "0", balance: "10", reserve: usdcReserve("0", "0"), expected: "0", fiat: "0"},
		{name: "whitespace trimmed", raw: " 1.25 ", balance: "10", reserve: usdcReserve("0", "0"), expected: "1.25", fiat: "1.25025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.raw, dec(tt.balance), tt.reserve, market)
			require.NoError(t, err)
			assert.True(t, res.Amount.Raw.Equal(dec(tt.expected)), "amount %s", res.Amount.Raw)
			assert.Equal(t, tt.isMax, res.Amount.IsMax)
			assert.True(t, res.FiatValue.Equal(dec(tt.fiat)), "fiat %s", res.FiatValue)
		})
	}
}

func TestResolver_InvalidAmount(t *testing.T) {
	r := NewResolver(decimal.Zero)

	for _, raw := range []string{"", "abc", "-5", "1.2.3", "0.0000001", "--1"} {
		t.Run(raw, func(t *testing.T) {
			res, err := r.Resolve(raw, dec("10"), usdcReserve("0", "0"), market)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidAmount))
			assert.True(t, res.Max.Equal(dec("10")))
		})
	}
}

func TestResolver_MaxNeverExceedsBalance(t *testing.T) {
	r := NewResolver(dec("0.01"))
	native := domain.ReserveSnapshot{
		UnderlyingAsset: domain.NativeAssetAddress,
		Symbol:          "WMATIC",
		Decimals:        18,
		SupplyCap:       dec("0"),
	}

	balances := []string{"0", "0.005", "0.01", "1", "3.333333333333333333333", "1000000"}
	reserves := []domain.ReserveSnapshot{native, usdcReserve("1000", "950"), usdcReserve("0", "0"), usdcReserve("10", "20")}

	for _, balance := range balances {
		for _, reserve := range reserves {
			res, err := r.Resolve("-1", dec(balance), reserve, market)
			require.NoError(t, err)
			assert.True(t, res.Amount.Raw.LessThanOrEqual(dec(balance)), "max %s balance %s", res.Amount.Raw, balance)
			assert.False(t, res.Amount.Raw.IsNegative())
			assert.True(t, res.Amount.Raw.Equal(res.Max))
		}
	}
}

func TestResolver_NativeKeepsGasReserve(t *testing.T) {
	r := NewResolver(dec("0.001"))
	native := domain.ReserveSnapshot{UnderlyingAsset: domain.NativeAssetAddress, Decimals: 18}

	assert.True(t, r.Max(dec("2"), native).Equal(dec("1.999")))
	assert.True(t, r.Max(dec("2"), usdcReserve("0", "0")).Equal(dec("2")))
}
