package arbitrage

import (
	"sort"

	"github.com/taku247/hevm-tool/dex"
	umath "github.com/taku247/hevm-tool/utils/math"
)

// Sanity bounds for spread computation. Rates below RateEpsilon are noise,
// not prices; ratios above MaxRateRatio are data artifacts, not real 100x
// price gaps. Overridable on the analyzer, defaulted here.
const (
	RateEpsilon  = 1e-6
	MaxRateRatio = 100.0
	MaxSpreadPct = 100.0
)

// SpreadAnalyzer enumerates ordered quote pairs for one direction and ranks
// the price differences.
type SpreadAnalyzer struct {
	Epsilon   float64
	MaxRatio  float64
	MaxSpread float64
}

// NewSpreadAnalyzer creates an analyzer with the default sanity bounds.
func NewSpreadAnalyzer() *SpreadAnalyzer {
	return &SpreadAnalyzer{
		Epsilon:   RateEpsilon,
		MaxRatio:  MaxRateRatio,
		MaxSpread: MaxSpreadPct,
	}
}

// usable rejects quotes whose rate or formatted output is below epsilon.
func (s *SpreadAnalyzer) usable(q dex.Quote) bool {
	if !q.Success {
		return false
	}
	if q.Rate <= s.Epsilon {
		return false
	}
	return umath.FormatUnits(q.AmountOut, q.TokenOut.Decimals) >= s.Epsilon
}

// FindPriceDifferences enumerates every ordered quote pair, assigns buy to
// the lower rate, and keeps spreads within [minSpreadPercent, MaxSpread].
// Spread = (high - low) / low * 100, always >= 0 by construction. The sort
// is stable so identical inputs always produce identically ordered output.
func (s *SpreadAnalyzer) FindPriceDifferences(quotes []dex.Quote, minSpreadPercent float64) []SpreadOpportunity {
	var candidates []dex.Quote
	for _, q := range quotes {
		if s.usable(q) {
			candidates = append(candidates, q)
		}
	}

	var opportunities []SpreadOpportunity
	for i := range candidates {
		for j := range candidates {
			if i == j {
				continue
			}
			low, high := candidates[i], candidates[j]
			if low.Rate >= high.Rate {
				continue
			}

			if high.Rate/low.Rate > s.MaxRatio {
				continue
			}

			spread := (high.Rate - low.Rate) / low.Rate * 100
			if spread < minSpreadPercent || spread > s.MaxSpread {
				continue
			}

			opportunities = append(opportunities, SpreadOpportunity{
				BuySource:     low.Source,
				SellSource:    high.Source,
				BuyRate:       low.Rate,
				SellRate:      high.Rate,
				SpreadPercent: spread,
				CrossVenue:    low.Source.DexID != high.Source.DexID,
			})
		}
	}

	sort.SliceStable(opportunities, func(a, b int) bool {
		return opportunities[a].SpreadPercent > opportunities[b].SpreadPercent
	})

	return opportunities
}

// AllCombinations is the display/debugging companion: the same pairwise
// enumeration with no ratio or threshold filtering. A single successful
// quote degenerates to one informational row with spread 0.
func (s *SpreadAnalyzer) AllCombinations(quotes []dex.Quote) []SpreadOpportunity {
	var candidates []dex.Quote
	for _, q := range quotes {
		if s.usable(q) {
			candidates = append(candidates, q)
		}
	}

	if len(candidates) == 1 {
		only := candidates[0]
		return []SpreadOpportunity{{
			BuySource:     only.Source,
			SellSource:    only.Source,
			BuyRate:       only.Rate,
			SellRate:      only.Rate,
			SpreadPercent: 0,
			CrossVenue:    false,
		}}
	}

	var rows []SpreadOpportunity
	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			low, high := candidates[i], candidates[j]
			if low.Rate > high.Rate {
				low, high = high, low
			}

			rows = append(rows, SpreadOpportunity{
				BuySource:     low.Source,
				SellSource:    high.Source,
				BuyRate:       low.Rate,
				SellRate:      high.Rate,
				SpreadPercent: (high.Rate - low.Rate) / low.Rate * 100,
				CrossVenue:    low.Source.DexID != high.Source.DexID,
			})
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].SpreadPercent > rows[b].SpreadPercent
	})

	return rows
}
