package arbitrage

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taku247/hevm-tool/dex"
)

func spreadPair(name string, lowRate, highRate float64) PairVenues {
	return PairVenues{
		Name:   name,
		TokenA: tokenA,
		TokenB: tokenB,
		Clients: []dex.QuoteClient{
			fixedClient("hyperswap", 0, dex.Quote{Success: true, Rate: lowRate, TokenOut: tokenB, AmountOut: big.NewInt(int64(lowRate * 1e6))}),
			fixedClient("kittenswap", 0, dex.Quote{Success: true, Rate: highRate, TokenOut: tokenB, AmountOut: big.NewInt(int64(highRate * 1e6))}),
		},
	}
}

func TestScannerBatchProgress(t *testing.T) {
	pairs := make([]PairVenues, 25)
	for i := range pairs {
		pairs[i] = spreadPair(fmt.Sprintf("pair-%d", i), 100, 110)
	}

	var events []Progress
	scanner := NewScanner(NewAggregator(nil, nil), nil, nil, nil)
	run, err := scanner.Run(context.Background(), pairs, Options{
		AmountIn:         "1",
		MinSpreadPercent: 0.5,
		BatchSize:        10,
		OnProgress:       func(p Progress) { events = append(events, p) },
	})
	require.NoError(t, err)

	// 25 pairs in batches of 10: exactly three events, monotonic and
	// append-only, the last one covering the short tail.
	require.Len(t, events, 3)
	assert.Equal(t, 10, events[0].Processed)
	assert.Equal(t, 20, events[1].Processed)
	assert.Equal(t, 25, events[2].Processed)
	for _, e := range events {
		assert.Equal(t, 25, e.Total)
	}

	assert.Equal(t, 25, run.TotalPairs)
	require.Len(t, run.Results, 25)
	assert.Equal(t, 1.0, run.SuccessRate)
}

func TestScannerResultsKeepPairOrder(t *testing.T) {
	pairs := []PairVenues{
		spreadPair("first", 100, 110),
		spreadPair("second", 100, 101),
		spreadPair("third", 100, 120),
	}

	scanner := NewScanner(NewAggregator(nil, nil), nil, nil, nil)
	run, err := scanner.Run(context.Background(), pairs, Options{AmountIn: "1", BatchSize: 2})
	require.NoError(t, err)

	require.Len(t, run.Results, 3)
	assert.Equal(t, "first", run.Results[0].Pair)
	assert.Equal(t, "second", run.Results[1].Pair)
	assert.Equal(t, "third", run.Results[2].Pair)
}

func TestScannerIsolatesPairFailures(t *testing.T) {
	pairs := []PairVenues{
		spreadPair("good", 100, 110),
		{Name: "empty", TokenA: tokenA, TokenB: tokenB}, // no sources
	}

	scanner := NewScanner(NewAggregator(nil, nil), nil, nil, nil)
	run, err := scanner.Run(context.Background(), pairs, Options{AmountIn: "1", MinSpreadPercent: 0.5})
	require.NoError(t, err)

	assert.True(t, run.Results[0].HasOpportunity)
	assert.False(t, run.Results[1].HasOpportunity)
	assert.Equal(t, "no sources configured for pair", run.Results[1].Err)
	assert.Equal(t, 0.5, run.SuccessRate)
}

func TestScannerRejectsBadAmountPerPair(t *testing.T) {
	pairs := []PairVenues{spreadPair("pair", 100, 110)}

	scanner := NewScanner(NewAggregator(nil, nil), nil, nil, nil)
	run, err := scanner.Run(context.Background(), pairs, Options{AmountIn: "not-a-number"})
	require.NoError(t, err)

	assert.Contains(t, run.Results[0].Err, "invalid amount")
	assert.False(t, run.Results[0].HasOpportunity)
}

func TestScannerTopNRanking(t *testing.T) {
	pairs := []PairVenues{
		spreadPair("small", 100, 102),
		spreadPair("big", 100, 115),
		spreadPair("medium", 100, 108),
	}

	scanner := NewScanner(NewAggregator(nil, nil), nil, nil, nil)
	run, err := scanner.Run(context.Background(), pairs, Options{AmountIn: "1", MinSpreadPercent: 0.5, TopN: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, run.Opportunities)
	require.Len(t, run.TopSpreads, 2)
	assert.InDelta(t, 15.0, run.TopSpreads[0].SpreadPercent, 1e-9)
	assert.InDelta(t, 8.0, run.TopSpreads[1].SpreadPercent, 1e-9)
}

func TestScannerRoundTripMode(t *testing.T) {
	venue := venueClient("hyperswap", big.NewInt(500000), 2.04)
	pairs := []PairVenues{{
		Name: "WETH/USDC", TokenA: tokenA, TokenB: tokenB,
		Clients: []dex.QuoteClient{venue},
	}}

	scanner := NewScanner(NewAggregator(nil, nil), nil, nil, nil)
	run, err := scanner.Run(context.Background(), pairs, Options{
		Mode:             RoundTrip,
		AmountIn:         "1",
		MinProfitPercent: 1.0,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, run.Opportunities)
	require.Len(t, run.TopRoundTrips, 1)
	assert.InDelta(t, 2.0, run.TopRoundTrips[0].ProfitPercent, 1e-6)
	assert.Equal(t, "hyperswap -> hyperswap", run.Results[0].BestSource)
}
