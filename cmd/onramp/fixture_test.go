package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixture = `
reserve:
  underlying_asset: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"
  symbol: WMATIC
  decimals: 18
  a_token_address: "0x6d80113e533a2C0fe82EaBD35f1875DcEA89Ea97"
  supply_cap: "1000"
  total_liquidity: "950.123456789012345678"
  price_in_reference_currency: "0.8"
market:
  reference_price_in_usd: "100000000"
balances:
  native: "5"
  token: "20"
account: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
`

func writeFixture(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "reserve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFixture(t *testing.T) {
	f, err := loadFixture(writeFixture(t, sampleFixture))
	require.NoError(t, err)

	params, err := f.params("MATIC")
	require.NoError(t, err)

	assert.Equal(t, "WMATIC", params.Reserve.Symbol)
	assert.Equal(t, int32(18), params.Reserve.Decimals)
	assert.Equal(t, "950.123456789012345678", params.Reserve.TotalLiquidity.String())
	assert.Equal(t, "MATIC", params.Market.NativeSymbol)
	assert.Equal(t, "20", params.Balances.Token.String())
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", params.Account)
}

func TestFixture_InvalidValues(t *testing.T) {
	f, err := loadFixture(writeFixture(t, "reserve:\n  symbol: DAI\n  supply_cap: \"lots\"\n"))
	require.NoError(t, err)

	_, err = f.params("MATIC")
	assert.ErrorContains(t, err, "reserve.supply_cap")

	f, err = loadFixture(writeFixture(t, "reserve:\n  symbol: DAI\nbalances:\n  token: \"-1\"\n"))
	require.NoError(t, err)

	_, err = f.params("MATIC")
	assert.ErrorContains(t, err, "must not be negative")

	_, err = loadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
