package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NativeAssetAddress is the placeholder address the protocol uses for the network's native asset.
const NativeAssetAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// USDReferenceDecimals is the fixed-point scale of the market reference price in USD.
const USDReferenceDecimals = 8

// ReserveSnapshot is a read-only view of a protocol reserve supplied by the caller.
// A zero SupplyCap means the reserve is uncapped.
type ReserveSnapshot struct {
	UnderlyingAsset          string
	Symbol                   string
	Decimals                 int32
	ATokenAddress            string
	SupplyCap                decimal.Decimal
	TotalLiquidity           decimal.Decimal
	PriceInReferenceCurrency decimal.Decimal
}

// Capped reports whether the reserve enforces a supply cap.
func (r ReserveSnapshot) Capped() bool {
	return !r.SupplyCap.IsZero()
}

// Headroom returns supplyCap - totalLiquidity. It is only meaningful for capped reserves and
// can be negative when liquidity already exceeds the cap.
func (r ReserveSnapshot) Headroom() decimal.Decimal {
	return r.SupplyCap.Sub(r.TotalLiquidity)
}

// IsNative reports whether the reserve's underlying asset is the network's native asset.
func (r ReserveSnapshot) IsNative() bool {
	return strings.EqualFold(r.UnderlyingAsset, NativeAssetAddress)
}

// Market carries network-wide values consumed by the flow.
type Market struct {
	NativeSymbol string
	// ReferencePriceInUSD is the market reference currency price in USD, scaled by 10^USDReferenceDecimals.
	ReferencePriceInUSD decimal.Decimal
}

// Balances holds the wallet balances relevant for one reserve.
type Balances struct {
	Native decimal.Decimal
	Token  decimal.Decimal
}

// WalletBalance picks the balance that funds a supply of the given reserve.
func (b Balances) WalletBalance(reserve ReserveSnapshot) decimal.Decimal {
	if reserve.IsNative() {
		return b.Native
	}

	return b.Token
}

// DisplaySymbol returns the symbol shown to the user for the reserve.
func (m Market) DisplaySymbol(reserve ReserveSnapshot) string {
	if reserve.IsNative() && m.NativeSymbol != "" {
		return m.NativeSymbol
	}

	return reserve.Symbol
}

// TokenDescriptor describes the aToken a successful supply mints, for "add to wallet" prompts.
type TokenDescriptor struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	AToken   bool   `json:"aToken"`
}

// AToken builds the descriptor of the reserve's aToken.
func (r ReserveSnapshot) AToken() TokenDescriptor {
	return TokenDescriptor{
		Address:  r.ATokenAddress,
		Symbol:   r.Symbol,
		Decimals: r.Decimals,
		AToken:   true,
	}
}
