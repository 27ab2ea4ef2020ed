package arbitrage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taku247/hevm-tool/dex"
	"github.com/taku247/hevm-tool/gas"
	umath "github.com/taku247/hevm-tool/utils/math"
	"github.com/taku247/hevm-tool/utils/metrics"
)

// Options configure one batch scan.
type Options struct {
	Mode             ScanMode
	AmountIn         string // decimal amount in whole token A units
	MinSpreadPercent float64
	MinProfitPercent float64
	BatchSize        int
	TopN             int
	// OnProgress receives one append-only event after each batch. May be nil.
	OnProgress func(Progress)
}

// Scanner iterates a universe of token pairs in fixed-size batches. Within
// a batch pairs are scanned concurrently; across batches sequentially, to
// bound peak concurrent RPC load.
type Scanner struct {
	agg      *Aggregator
	analyzer *SpreadAnalyzer
	sim      *Simulator
	gasEst   *gas.Estimator // optional
	logger   *zap.Logger
	metrics  *metrics.ScanMetrics
}

// NewScanner creates a batch scanner. gasEst and m may be nil.
func NewScanner(agg *Aggregator, gasEst *gas.Estimator, logger *zap.Logger, m *metrics.ScanMetrics) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		agg:      agg,
		analyzer: NewSpreadAnalyzer(),
		sim:      NewSimulator(agg, logger),
		gasEst:   gasEst,
		logger:   logger,
		metrics:  m,
	}
}

// Run scans every pair and aggregates run-level statistics. A single pair's
// failure never aborts the batch; it degenerates to a result with an error
// annotation and no opportunity.
func (s *Scanner) Run(ctx context.Context, pairs []PairVenues, opts Options) (*ScanRun, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.AmountIn == "" {
		opts.AmountIn = "1"
	}

	run := &ScanRun{
		Mode:       opts.Mode,
		TotalPairs: len(pairs),
		Results:    make([]PairScanResult, len(pairs)),
		StartedAt:  time.Now(),
	}

	if s.gasEst != nil {
		snapshot, err := s.gasEst.Take(ctx)
		if err != nil {
			s.logger.Warn("gas snapshot failed", zap.Error(err))
		} else {
			run.Gas = snapshot
		}
	}

	processed := 0
	for start := 0; start < len(pairs); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(pairs) {
			end = len(pairs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				run.Results[slot] = s.scanPair(ctx, pairs[slot], opts)
			}(i)
		}
		wg.Wait()

		processed = end
		found := 0
		for _, r := range run.Results[:processed] {
			if r.HasOpportunity {
				found++
			}
		}
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Processed:     processed,
				Total:         len(pairs),
				Opportunities: found,
			})
		}
		s.logger.Info("batch complete",
			zap.Int("processed", processed),
			zap.Int("total", len(pairs)),
			zap.Int("opportunities", found),
		)
	}

	s.finalize(run, opts)
	return run, nil
}

// scanPair runs one pair in the selected mode. Panics and config problems
// are contained here.
func (s *Scanner) scanPair(ctx context.Context, pair PairVenues, opts Options) (result PairScanResult) {
	start := time.Now()
	result.Pair = pair.Name
	result.TokenA = pair.TokenA
	result.TokenB = pair.TokenB
	defer func() {
		result.Elapsed = time.Since(start)
		s.metrics.ObservePair(result.Elapsed, result.HasOpportunity)
	}()

	if len(pair.Clients) == 0 {
		result.Err = "no sources configured for pair"
		return result
	}

	amountIn, err := umath.ParseUnits(opts.AmountIn, pair.TokenA.Decimals)
	if err != nil {
		result.Err = fmt.Sprintf("invalid amount: %v", err)
		return result
	}

	switch opts.Mode {
	case RoundTrip:
		executions, opportunities, exclusions := s.sim.SimulateRoundTrips(ctx, pair, amountIn, opts.MinProfitPercent)
		result.Executions = executions
		result.RoundTrips = opportunities
		result.Exclusions = exclusions
		result.HasOpportunity = len(opportunities) > 0
		if len(opportunities) > 0 {
			result.BestSource = opportunities[0].BuySource.Label() + " -> " + opportunities[0].SellSource.Label()
		}
	default:
		quotes, exclusions := s.agg.FetchAll(ctx, pair.Clients, pair.TokenA, pair.TokenB, amountIn)
		result.Quotes = quotes
		result.Exclusions = exclusions
		result.Spreads = s.analyzer.FindPriceDifferences(quotes, opts.MinSpreadPercent)
		result.AllSpreads = s.analyzer.AllCombinations(quotes)
		result.HasOpportunity = len(result.Spreads) > 0
		result.BestSource, result.WorstSource = rateExtremes(quotes)
	}

	return result
}

// finalize computes run-level statistics and top-N rankings.
func (s *Scanner) finalize(run *ScanRun, opts Options) {
	withOpportunity := 0
	for _, r := range run.Results {
		if r.HasOpportunity {
			withOpportunity++
		}
		switch run.Mode {
		case RoundTrip:
			run.Opportunities += len(r.RoundTrips)
			run.TopRoundTrips = append(run.TopRoundTrips, r.RoundTrips...)
		default:
			run.Opportunities += len(r.Spreads)
			run.TopSpreads = append(run.TopSpreads, r.Spreads...)
		}
	}

	if run.TotalPairs > 0 {
		run.SuccessRate = float64(withOpportunity) / float64(run.TotalPairs)
	}

	sort.SliceStable(run.TopSpreads, func(a, b int) bool {
		return run.TopSpreads[a].SpreadPercent > run.TopSpreads[b].SpreadPercent
	})
	if len(run.TopSpreads) > opts.TopN {
		run.TopSpreads = run.TopSpreads[:opts.TopN]
	}

	sort.SliceStable(run.TopRoundTrips, func(a, b int) bool {
		return run.TopRoundTrips[a].ProfitPercent > run.TopRoundTrips[b].ProfitPercent
	})
	if len(run.TopRoundTrips) > opts.TopN {
		run.TopRoundTrips = run.TopRoundTrips[:opts.TopN]
	}

	run.Duration = time.Since(run.StartedAt)
	s.metrics.ObserveRun(run.Duration, run.Opportunities)
}

// rateExtremes returns the labels of the best and worst successful quotes
// for one direction. Empty strings when nothing succeeded.
func rateExtremes(quotes []dex.Quote) (best, worst string) {
	var bestQ, worstQ *dex.Quote
	for i := range quotes {
		q := &quotes[i]
		if !q.Success {
			continue
		}
		if bestQ == nil || q.Rate > bestQ.Rate {
			bestQ = q
		}
		if worstQ == nil || q.Rate < worstQ.Rate {
			worstQ = q
		}
	}
	if bestQ != nil {
		best = bestQ.Source.Label()
	}
	if worstQ != nil {
		worst = worstQ.Source.Label()
	}
	return best, worst
}
