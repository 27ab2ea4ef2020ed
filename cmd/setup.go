package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taku247/hevm-tool/arbitrage"
	"github.com/taku247/hevm-tool/chain"
	"github.com/taku247/hevm-tool/config"
	"github.com/taku247/hevm-tool/dex"
	"github.com/taku247/hevm-tool/utils"
)

const tokenCacheSize = 256

// engine bundles the per-run components assembled from configuration.
type engine struct {
	cfg    *config.Config
	client *chain.Client
	tokens *dex.TokenCache
	logger *zap.Logger
}

// newEngine loads configuration and connects to the chain. The silent flag
// swaps in a nop logger for quote-level output; engine behavior is
// identical either way.
func newEngine(cfgPath string) (*engine, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := utils.GetLogger()
	if silent {
		logger = utils.SilentLogger()
	}

	client, err := chain.Dial(cfg.RPCEndpoint, chain.Options{
		Timeout:           cfg.NetworkTimeout(),
		RequestsPerSecond: cfg.RPCRateLimit.RequestsPerSecond,
		BurstSize:         cfg.RPCRateLimit.BurstSize,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := dex.NewTokenCache(client, tokenCacheSize, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &engine{
		cfg:    cfg,
		client: client,
		tokens: tokens,
		logger: logger,
	}, nil
}

func (e *engine) Close() {
	e.client.Close()
}

// resolveToken fills in missing metadata through the cache. Configured
// decimals win over resolution so a curated config never pays the RPC cost.
func (e *engine) resolveToken(ctx context.Context, tc config.TokenConfig) dex.TokenRef {
	ref := tc.Ref()
	if ref.Decimals != 0 && ref.Symbol != "" {
		return ref
	}

	resolved := e.tokens.Resolve(ctx, ref.Address)
	if ref.Decimals == 0 {
		ref.Decimals = resolved.Decimals
	}
	if ref.Symbol == "" {
		ref.Symbol = resolved.Symbol
	}
	return ref
}

// buildClients constructs one retry-wrapped quote client per source.
func (e *engine) buildClients(sources []dex.Source) ([]dex.QuoteClient, error) {
	var clients []dex.QuoteClient
	for _, source := range sources {
		var (
			client dex.QuoteClient
			err    error
		)
		switch source.Kind {
		case dex.Concentrated:
			client, err = dex.NewV3Client(source, e.client, e.logger)
		default:
			client, err = dex.NewV2Client(source, e.client, e.logger)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build client for %s: %w", source.Label(), err)
		}
		clients = append(clients, dex.WithRetry(client, dex.DefaultRetryAttempts, dex.DefaultRetryBackoff, e.logger))
	}
	return clients, nil
}

// buildPairVenues resolves the configured pair universe into scannable
// units. A malformed pair is skipped with a log line, not fatal.
func (e *engine) buildPairVenues(ctx context.Context) ([]arbitrage.PairVenues, error) {
	var pairs []arbitrage.PairVenues
	for _, pc := range e.cfg.Pairs {
		sources, err := e.cfg.SourcesFor(pc)
		if err != nil {
			e.logger.Warn("skipping pair with bad source config",
				zap.String("pair", pc.Name),
				zap.Error(err),
			)
			continue
		}

		clients, err := e.buildClients(sources)
		if err != nil {
			e.logger.Warn("skipping pair, client construction failed",
				zap.String("pair", pc.Name),
				zap.Error(err),
			)
			continue
		}

		pairs = append(pairs, arbitrage.PairVenues{
			Name:    pc.Name,
			TokenA:  e.resolveToken(ctx, pc.TokenA),
			TokenB:  e.resolveToken(ctx, pc.TokenB),
			Clients: clients,
		})
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("no scannable pairs after filtering")
	}
	return pairs, nil
}
