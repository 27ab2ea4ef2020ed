package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/taku247/hevm-tool/dex"
)

// TokenConfig describes one token of a scannable pair. Decimals may be
// omitted; the token metadata cache resolves them at run time.
type TokenConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Address  string `json:"address" yaml:"address"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}

// Ref converts the configured token into a TokenRef.
func (t TokenConfig) Ref() dex.TokenRef {
	return dex.TokenRef{
		Symbol:   t.Symbol,
		Address:  common.HexToAddress(t.Address),
		Decimals: t.Decimals,
	}
}

// DexConfig describes one DEX deployment. A concentrated-liquidity venue
// with N fee tiers (or tick spacings) expands into N independent sources.
type DexConfig struct {
	Name         string   `json:"name" yaml:"name"`
	Protocol     string   `json:"protocol" yaml:"protocol"` // "v2" or "v3"
	Router       string   `json:"router,omitempty" yaml:"router,omitempty"`
	Quoter       string   `json:"quoter,omitempty" yaml:"quoter,omitempty"`
	FeeTiers     []uint32 `json:"fee_tiers,omitempty" yaml:"fee_tiers,omitempty"`
	TickSpacings []int64  `json:"tick_spacings,omitempty" yaml:"tick_spacings,omitempty"`
	Active       bool     `json:"active" yaml:"active"`
}

// Kind maps the configured protocol string onto the closed ProtocolKind set.
func (d DexConfig) Kind() (dex.ProtocolKind, error) {
	switch strings.ToLower(d.Protocol) {
	case "v2", "constant-product":
		return dex.ConstantProduct, nil
	case "v3", "concentrated":
		return dex.Concentrated, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q for dex %s", d.Protocol, d.Name)
	}
}

// Sources expands this DEX into its liquidity sources.
func (d DexConfig) Sources() ([]dex.Source, error) {
	kind, err := d.Kind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case dex.ConstantProduct:
		return []dex.Source{{
			DexID:   d.Name,
			Kind:    dex.ConstantProduct,
			Address: common.HexToAddress(d.Router),
		}}, nil
	default:
		var sources []dex.Source
		quoter := common.HexToAddress(d.Quoter)
		for _, fee := range d.FeeTiers {
			sources = append(sources, dex.Source{
				DexID:   d.Name,
				Kind:    dex.Concentrated,
				Address: quoter,
				FeeTier: fee,
			})
		}
		for _, spacing := range d.TickSpacings {
			sources = append(sources, dex.Source{
				DexID:       d.Name,
				Kind:        dex.Concentrated,
				Address:     quoter,
				TickSpacing: spacing,
			})
		}
		return sources, nil
	}
}

// PairConfig describes one scannable token pair. Sources flags mark which
// DEXes are known to have a pool, avoiding calls that can only fail; an
// empty map means all active DEXes.
type PairConfig struct {
	Name    string          `json:"name" yaml:"name"`
	TokenA  TokenConfig     `json:"token_a" yaml:"token_a"`
	TokenB  TokenConfig     `json:"token_b" yaml:"token_b"`
	Sources map[string]bool `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// ScanConfig carries scan defaults; CLI flags override these.
type ScanConfig struct {
	AmountIn         string  `json:"amount_in" yaml:"amount_in"`
	MinSpreadPercent float64 `json:"min_spread_percent" yaml:"min_spread_percent"`
	MinProfitPercent float64 `json:"min_profit_percent" yaml:"min_profit_percent"`
	BatchSize        int     `json:"batch_size" yaml:"batch_size"`
	TopN             int     `json:"top_n" yaml:"top_n"`
}

// RateLimitConfig bounds the RPC request rate.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `json:"burst_size" yaml:"burst_size"`
}

// Config is the whole-run configuration, constructed once at process start
// and passed by injection. No ambient global state.
type Config struct {
	ChainID        uint64          `json:"chain_id" yaml:"chain_id"`
	RPCEndpoint    string          `json:"rpc_endpoint" yaml:"rpc_endpoint"`
	TimeoutSeconds int             `json:"timeout_seconds" yaml:"timeout_seconds"`
	RPCRateLimit   RateLimitConfig `json:"rpc_rate_limit" yaml:"rpc_rate_limit"`

	Dexes []DexConfig  `json:"dexes" yaml:"dexes"`
	Pairs []PairConfig `json:"pairs" yaml:"pairs"`
	Scan  ScanConfig   `json:"scan" yaml:"scan"`

	PrometheusEnabled  bool   `json:"prometheus_enabled" yaml:"prometheus_enabled"`
	PrometheusEndpoint string `json:"prometheus_endpoint" yaml:"prometheus_endpoint"`
}

// NetworkTimeout returns the per-call RPC timeout.
func (c *Config) NetworkTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads and validates a JSON or YAML configuration file. The
// HEVM_RPC_URL environment variable overrides the configured endpoint.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path not specified")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if endpoint := os.Getenv(EnvRPCURL); endpoint != "" {
		config.RPCEndpoint = endpoint
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate collects every configuration problem instead of stopping at the
// first. A configuration-load failure is the only fatal error class in a run.
func (c *Config) Validate() error {
	var errors []string

	if c.RPCEndpoint == "" {
		errors = append(errors, "rpc_endpoint must be specified (config or HEVM_RPC_URL)")
	}
	if len(c.Dexes) == 0 {
		errors = append(errors, "at least one dex must be configured")
	}
	if len(c.Pairs) == 0 {
		errors = append(errors, "at least one pair must be configured")
	}

	names := make(map[string]bool)
	for _, d := range c.Dexes {
		if d.Name == "" {
			errors = append(errors, "dex name must not be empty")
			continue
		}
		if names[d.Name] {
			errors = append(errors, fmt.Sprintf("duplicate dex name %q", d.Name))
		}
		names[d.Name] = true

		kind, err := d.Kind()
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}
		switch kind {
		case dex.ConstantProduct:
			if !common.IsHexAddress(d.Router) {
				errors = append(errors, fmt.Sprintf("dex %s: invalid router address %q", d.Name, d.Router))
			}
		case dex.Concentrated:
			if !common.IsHexAddress(d.Quoter) {
				errors = append(errors, fmt.Sprintf("dex %s: invalid quoter address %q", d.Name, d.Quoter))
			}
			if len(d.FeeTiers) == 0 && len(d.TickSpacings) == 0 {
				errors = append(errors, fmt.Sprintf("dex %s: v3 requires fee_tiers or tick_spacings", d.Name))
			}
		}
	}

	for _, p := range c.Pairs {
		if p.Name == "" {
			errors = append(errors, "pair name must not be empty")
		}
		if !common.IsHexAddress(p.TokenA.Address) {
			errors = append(errors, fmt.Sprintf("pair %s: invalid token_a address %q", p.Name, p.TokenA.Address))
		}
		if !common.IsHexAddress(p.TokenB.Address) {
			errors = append(errors, fmt.Sprintf("pair %s: invalid token_b address %q", p.Name, p.TokenB.Address))
		}
		for name := range p.Sources {
			if !names[name] {
				errors = append(errors, fmt.Sprintf("pair %s: unknown source %q", p.Name, name))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// SourcesFor expands the sources a pair should be quoted against: active
// DEXes only, filtered by the pair's availability flags.
func (c *Config) SourcesFor(pair PairConfig) ([]dex.Source, error) {
	var sources []dex.Source
	for _, d := range c.Dexes {
		if !d.Active {
			continue
		}
		if pair.Sources != nil {
			if available, ok := pair.Sources[d.Name]; !ok || !available {
				continue
			}
		}
		expanded, err := d.Sources()
		if err != nil {
			return nil, err
		}
		sources = append(sources, expanded...)
	}
	return sources, nil
}
