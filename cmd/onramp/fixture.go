package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Proton-105/onramp/internal/domain"
	"github.com/Proton-105/onramp/internal/flow"
)

// fixture is the reserve, market and wallet data a flow runs against. Numeric fields are
// strings so large token amounts keep full precision.
type fixture struct {
	Reserve struct {
		UnderlyingAsset          string `yaml:"underlying_asset"`
		Symbol                   string `yaml:"symbol"`
		Decimals                 int32  `yaml:"decimals"`
		ATokenAddress            string `yaml:"a_token_address"`
		SupplyCap                string `yaml:"supply_cap"`
		TotalLiquidity           string `yaml:"total_liquidity"`
		PriceInReferenceCurrency string `yaml:"price_in_reference_currency"`
	} `yaml:"reserve"`
	Market struct {
		ReferencePriceInUSD string `yaml:"reference_price_in_usd"`
	} `yaml:"market"`
	Balances struct {
		Native string `yaml:"native"`
		Token  string `yaml:"token"`
	} `yaml:"balances"`
	Account string `yaml:"account"`
}

func loadFixture(path string) (*fixture, error) {
	// #nosec G304: path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %q: %w", path, err)
	}

	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture %q: %w", path, err)
	}

	return &f, nil
}

func (f *fixture) params(nativeSymbol string) (flow.Params, error) {
	values := map[string]string{
		"reserve.supply_cap":                  f.Reserve.SupplyCap,
		"reserve.total_liquidity":             f.Reserve.TotalLiquidity,
		"reserve.price_in_reference_currency": f.Reserve.PriceInReferenceCurrency,
		"market.reference_price_in_usd":       f.Market.ReferencePriceInUSD,
		"balances.native":                     f.Balances.Native,
		"balances.token":                      f.Balances.Token,
	}

	parsed := make(map[string]decimal.Decimal, len(values))
	for field, raw := range values {
		if raw == "" {
			parsed[field] = decimal.Zero
			continue
		}

		value, err := decimal.NewFromString(raw)
		if err != nil {
			return flow.Params{}, fmt.Errorf("fixture field %s: %w", field, err)
		}
		if value.IsNegative() {
			return flow.Params{}, fmt.Errorf("fixture field %s: must not be negative", field)
		}
		parsed[field] = value
	}

	if f.Reserve.Symbol == "" {
		return flow.Params{}, fmt.Errorf("fixture field reserve.symbol is required")
	}

	return flow.Params{
		Reserve: domain.ReserveSnapshot{
			UnderlyingAsset:          f.Reserve.UnderlyingAsset,
			Symbol:                   f.Reserve.Symbol,
			Decimals:                 f.Reserve.Decimals,
			ATokenAddress:            f.Reserve.ATokenAddress,
			SupplyCap:                parsed["reserve.supply_cap"],
			TotalLiquidity:           parsed["reserve.total_liquidity"],
			PriceInReferenceCurrency: parsed["reserve.price_in_reference_currency"],
		},
		Market: domain.Market{
			NativeSymbol:        nativeSymbol,
			ReferencePriceInUSD: parsed["market.reference_price_in_usd"],
		},
		Balances: domain.Balances{
			Native: parsed["balances.native"],
			Token:  parsed["balances.token"],
		},
		Account: f.Account,
	}, nil
}
