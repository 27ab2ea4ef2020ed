package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taku247/hevm-tool/dex"
)

const (
	routerAddr = "0x1111111111111111111111111111111111111111"
	quoterAddr = "0x2222222222222222222222222222222222222222"
	wethAddr   = "0x5555555555555555555555555555555555555555"
	usdcAddr   = "0x6666666666666666666666666666666666666666"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validJSON = `{
  "chain_id": 999,
  "rpc_endpoint": "https://rpc.example.com/evm",
  "timeout_seconds": 15,
  "rpc_rate_limit": {"requests_per_second": 10, "burst_size": 20},
  "dexes": [
    {"name": "hyperswap", "protocol": "v2", "router": "` + routerAddr + `", "active": true},
    {"name": "hyperswap_v3", "protocol": "v3", "quoter": "` + quoterAddr + `", "fee_tiers": [500, 3000], "active": true},
    {"name": "kitten_cl", "protocol": "v3", "quoter": "` + quoterAddr + `", "tick_spacings": [60], "active": false}
  ],
  "pairs": [
    {"name": "WETH/USDC",
     "token_a": {"symbol": "WETH", "address": "` + wethAddr + `", "decimals": 18},
     "token_b": {"symbol": "USDC", "address": "` + usdcAddr + `", "decimals": 6},
     "sources": {"hyperswap": true, "hyperswap_v3": true}}
  ],
  "scan": {"amount_in": "1", "min_spread_percent": 0.5, "batch_size": 5, "top_n": 10}
}`

const validYAML = `chain_id: 999
rpc_endpoint: https://rpc.example.com/evm
dexes:
  - name: hyperswap
    protocol: v2
    router: "` + routerAddr + `"
    active: true
pairs:
  - name: WETH/USDC
    token_a: {symbol: WETH, address: "` + wethAddr + `", decimals: 18}
    token_b: {symbol: USDC, address: "` + usdcAddr + `", decimals: 6}
scan:
  amount_in: "0.1"
  min_spread_percent: 1.0
`

func TestLoadConfigJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.json", validJSON))
	require.NoError(t, err)

	assert.Equal(t, uint64(999), cfg.ChainID)
	assert.Equal(t, "https://rpc.example.com/evm", cfg.RPCEndpoint)
	assert.Equal(t, 15, cfg.TimeoutSeconds)
	require.Len(t, cfg.Dexes, 3)
	assert.Equal(t, []uint32{500, 3000}, cfg.Dexes[1].FeeTiers)
	require.Len(t, cfg.Pairs, 1)
	assert.Equal(t, "1", cfg.Scan.AmountIn)
}

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.yaml", validYAML))
	require.NoError(t, err)

	assert.Equal(t, uint64(999), cfg.ChainID)
	require.Len(t, cfg.Dexes, 1)
	assert.Equal(t, "0.1", cfg.Scan.AmountIn)
}

func TestLoadConfigEnvOverridesEndpoint(t *testing.T) {
	t.Setenv(EnvRPCURL, "https://other.example.com/evm")

	cfg, err := LoadConfig(writeConfig(t, "config.json", validJSON))
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/evm", cfg.RPCEndpoint)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Dexes: []DexConfig{
			{Name: "hyperswap", Protocol: "v2", Router: "not-an-address", Active: true},
			{Name: "hyperswap", Protocol: "v2", Router: routerAddr, Active: true},
			{Name: "bare_v3", Protocol: "v3", Quoter: quoterAddr, Active: true},
		},
		Pairs: []PairConfig{{
			Name:    "WETH/USDC",
			TokenA:  TokenConfig{Symbol: "WETH", Address: wethAddr},
			TokenB:  TokenConfig{Symbol: "USDC", Address: "0xbad"},
			Sources: map[string]bool{"nonexistent": true},
		}},
	}

	err := cfg.Validate()
	require.Error(t, err)

	// Every problem is reported in one pass, not just the first.
	msg := err.Error()
	assert.Contains(t, msg, "rpc_endpoint must be specified")
	assert.Contains(t, msg, `invalid router address "not-an-address"`)
	assert.Contains(t, msg, `duplicate dex name "hyperswap"`)
	assert.Contains(t, msg, "v3 requires fee_tiers or tick_spacings")
	assert.Contains(t, msg, `invalid token_b address "0xbad"`)
	assert.Contains(t, msg, `unknown source "nonexistent"`)
}

func TestDexConfigSourcesExpansion(t *testing.T) {
	d := DexConfig{Name: "hyperswap_v3", Protocol: "v3", Quoter: quoterAddr, FeeTiers: []uint32{500, 3000}}
	sources, err := d.Sources()
	require.NoError(t, err)

	require.Len(t, sources, 2)
	assert.Equal(t, dex.Concentrated, sources[0].Kind)
	assert.Equal(t, uint32(500), sources[0].FeeTier)
	assert.Equal(t, uint32(3000), sources[1].FeeTier)

	d = DexConfig{Name: "kitten_cl", Protocol: "concentrated", Quoter: quoterAddr, TickSpacings: []int64{60, 200}}
	sources, err = d.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, int64(60), sources[0].TickSpacing)

	_, err = DexConfig{Name: "x", Protocol: "v4"}.Sources()
	assert.Error(t, err)
}

func TestSourcesForHonorsAvailabilityFlags(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.json", validJSON))
	require.NoError(t, err)

	// kitten_cl is inactive and the pair flags only hyperswap + hyperswap_v3.
	sources, err := cfg.SourcesFor(cfg.Pairs[0])
	require.NoError(t, err)
	require.Len(t, sources, 3) // 1 v2 router + 2 fee tiers

	var ids []string
	for _, s := range sources {
		ids = append(ids, s.DexID)
	}
	assert.NotContains(t, ids, "kitten_cl")
}

func TestSourcesForEmptyFlagsMeansAllActive(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.json", validJSON))
	require.NoError(t, err)

	pair := cfg.Pairs[0]
	pair.Sources = nil
	sources, err := cfg.SourcesFor(pair)
	require.NoError(t, err)
	assert.Len(t, sources, 3) // all active dexes; kitten_cl stays out
}
