package arbitrage

import (
	"context"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"github.com/taku247/hevm-tool/dex"
	umath "github.com/taku247/hevm-tool/utils/math"
)

// PairVenues binds one token pair to the quote clients that may have a pool
// for it. Resolved once per run from configuration.
type PairVenues struct {
	Name    string
	TokenA  dex.TokenRef
	TokenB  dex.TokenRef
	Clients []dex.QuoteClient
}

// Simulator performs true two-hop round-trip simulation: buy A->B on one
// venue, then sell the actually-received amount B->A on another.
type Simulator struct {
	agg    *Aggregator
	logger *zap.Logger
}

// NewSimulator creates a round-trip simulator on top of an aggregator.
func NewSimulator(agg *Aggregator, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		agg:    agg,
		logger: logger,
	}
}

// SimulateRoundTrips quotes every (buy venue, sell venue) combination.
//
// The reverse-direction fetch reuses the nominal input amount purely to
// discover which sell venues exist; the sell leg is always re-quoted with
// the buy leg's measured output. For venues whose availability differs at
// very different amounts this existence check can be stale; that behavior
// is kept as-is.
//
// Returns every combination's result (executions), the subset meeting
// minProfitPercent sorted descending (opportunities), and exclusion
// diagnostics from both directions.
func (s *Simulator) SimulateRoundTrips(ctx context.Context, pair PairVenues, amountIn *big.Int, minProfitPercent float64) (executions, opportunities []RoundTripResult, exclusions []string) {
	forward, forwardExcl := s.agg.FetchAll(ctx, pair.Clients, pair.TokenA, pair.TokenB, amountIn)
	reverse, reverseExcl := s.agg.FetchAll(ctx, pair.Clients, pair.TokenB, pair.TokenA, amountIn)

	for _, e := range forwardExcl {
		exclusions = append(exclusions, "forward "+e)
	}
	for _, e := range reverseExcl {
		exclusions = append(exclusions, "reverse "+e)
	}

	initialFormatted := umath.FormatUnits(amountIn, pair.TokenA.Decimals)

	for _, buy := range forward {
		if !buy.Success {
			continue
		}

		for slot, sellProbe := range reverse {
			if !sellProbe.Success {
				continue
			}
			sellClient := pair.Clients[slot]

			// The sell leg uses the measured intermediate amount, already
			// in token B's smallest unit.
			sell := sellClient.GetAmountOut(ctx, dex.QuoteRequest{
				TokenIn:  pair.TokenB,
				TokenOut: pair.TokenA,
				AmountIn: buy.AmountOut,
			})

			result := RoundTripResult{
				BuySource:          buy.Source,
				SellSource:         sellClient.Source(),
				InitialAmount:      new(big.Int).Set(amountIn),
				IntermediateAmount: new(big.Int).Set(buy.AmountOut),
			}

			if !sell.Success {
				// Failed legs are first-class results: total simulated loss.
				result.Status = FailedAtSell
				result.FailureReason = sell.Exclusion
				result.FinalAmount = big.NewInt(0)
				result.Profit = new(big.Int).Neg(amountIn)
				result.ProfitPercent = -100
				executions = append(executions, result)
				continue
			}

			result.Status = Executed
			result.FinalAmount = new(big.Int).Set(sell.AmountOut)
			result.Profit = new(big.Int).Sub(sell.AmountOut, amountIn)
			if initialFormatted > 0 {
				finalFormatted := umath.FormatUnits(sell.AmountOut, pair.TokenA.Decimals)
				result.ProfitPercent = (finalFormatted - initialFormatted) / initialFormatted * 100
			}
			executions = append(executions, result)

			s.logger.Debug("round trip simulated",
				zap.String("pair", pair.Name),
				zap.String("buy", buy.Source.Label()),
				zap.String("sell", sellClient.Label()),
				zap.Float64("profit_percent", result.ProfitPercent),
			)
		}
	}

	for _, r := range executions {
		if r.Status == Executed && r.ProfitPercent >= minProfitPercent {
			opportunities = append(opportunities, r)
		}
	}

	sort.SliceStable(opportunities, func(a, b int) bool {
		return opportunities[a].ProfitPercent > opportunities[b].ProfitPercent
	})

	return executions, opportunities, exclusions
}
