package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, v, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "test")
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, 5*time.Second, cfg.Poller.Interval)
	assert.Equal(t, 5, cfg.Poller.MaxFailures)
	assert.Equal(t, 360, cfg.Poller.MaxPolls)
	assert.Equal(t, 60*time.Second, cfg.Capability.InitiateTimeout)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "MATIC", cfg.Network.NativeSymbol)
}

func TestLoadFile_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  format: text
capability:
  id: npm:@onramp/snap
  bridge_url: ws://bridge.local:9000/rpc
  initiate_timeout: 15s
poller:
  interval: 2s
network:
  native_symbol: ETH
  symbol_aliases:
    WETH: ETH
`)
	t.Setenv("ONRAMP_POLLER_MAX_FAILURES", "7")

	cfg, _, err := LoadFile(path, "staging")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "npm:@onramp/snap", cfg.Capability.ID)
	assert.Equal(t, 15*time.Second, cfg.Capability.InitiateTimeout)
	assert.Equal(t, 2*time.Second, cfg.Poller.Interval)
	assert.Equal(t, 7, cfg.Poller.MaxFailures)
	assert.Equal(t, "ETH", cfg.Network.NativeSymbol)
	assert.Equal(t, "ETH", cfg.Network.SymbolAliases["weth"])
}

func TestLoadFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "bridge url is not a url",
			body: "capability:\n  bridge_url: not-a-url\n",
		},
		{
			name: "unknown store driver",
			body: "store:\n  driver: etcd\n",
		},
		{
			name: "sentry enabled without dsn",
			body: "sentry:\n  enabled: true\n",
		},
		{
			name: "zero poll interval",
			body: "poller:\n  interval: 0s\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadFile(writeConfig(t, tt.body), "test")
			assert.Error(t, err)
		})
	}
}
