package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taku247/hevm-tool/arbitrage"
	"github.com/taku247/hevm-tool/gas"
	"github.com/taku247/hevm-tool/utils"
	"github.com/taku247/hevm-tool/utils/metrics"
)

var (
	scanAmount    string
	scanMinSpread float64
	scanMinProfit float64
	scanBatchSize int
	scanTopN      int
	scanMode      string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the configured pair universe for arbitrage opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()

		eng, err := newEngine(cfgFile)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx := cmd.Context()

		pairs, err := eng.buildPairVenues(ctx)
		if err != nil {
			return err
		}

		opts, err := scanOptions(eng)
		if err != nil {
			return err
		}
		opts.OnProgress = func(p arbitrage.Progress) {
			fmt.Printf("progress: %d/%d pairs, %d with opportunities\n",
				p.Processed, p.Total, p.Opportunities)
		}

		var m *metrics.ScanMetrics
		if eng.cfg.PrometheusEnabled {
			m = metrics.NewScanMetrics("hevm_tool")
			go func() {
				if err := m.Serve(eng.cfg.PrometheusEndpoint, log); err != nil {
					log.Error("metrics endpoint failed", zap.Error(err))
				}
			}()
		}

		agg := arbitrage.NewAggregator(eng.logger, m)
		scanner := arbitrage.NewScanner(agg, gas.NewEstimator(eng.client, eng.logger), eng.logger, m)

		run, err := scanner.Run(ctx, pairs, opts)
		if err != nil {
			return err
		}

		printScanRun(run)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanAmount, "amount", "", "input amount in whole token units (default from config)")
	scanCmd.Flags().Float64Var(&scanMinSpread, "min-spread", -1, "minimum spread percent (default from config)")
	scanCmd.Flags().Float64Var(&scanMinProfit, "min-profit", -1, "minimum round-trip profit percent (default from config)")
	scanCmd.Flags().IntVar(&scanBatchSize, "batch-size", 0, "pairs per concurrent batch (default from config)")
	scanCmd.Flags().IntVar(&scanTopN, "top", 0, "number of top opportunities to report (default from config)")
	scanCmd.Flags().StringVar(&scanMode, "mode", "spread", "analysis mode: spread or roundtrip")
}

// scanOptions merges config defaults with CLI overrides.
func scanOptions(eng *engine) (arbitrage.Options, error) {
	opts := arbitrage.Options{
		AmountIn:         eng.cfg.Scan.AmountIn,
		MinSpreadPercent: eng.cfg.Scan.MinSpreadPercent,
		MinProfitPercent: eng.cfg.Scan.MinProfitPercent,
		BatchSize:        eng.cfg.Scan.BatchSize,
		TopN:             eng.cfg.Scan.TopN,
	}

	if scanAmount != "" {
		opts.AmountIn = scanAmount
	}
	if scanMinSpread >= 0 {
		opts.MinSpreadPercent = scanMinSpread
	}
	if scanMinProfit >= 0 {
		opts.MinProfitPercent = scanMinProfit
	}
	if scanBatchSize > 0 {
		opts.BatchSize = scanBatchSize
	}
	if scanTopN > 0 {
		opts.TopN = scanTopN
	}

	switch scanMode {
	case "spread":
		opts.Mode = arbitrage.PriceDifference
	case "roundtrip":
		opts.Mode = arbitrage.RoundTrip
	default:
		return opts, fmt.Errorf("unknown mode %q (want spread or roundtrip)", scanMode)
	}

	return opts, nil
}

// printScanRun renders the run summary to stdout. Heavier report formats
// (CSV, HTML) are external collaborators consuming the same structures.
func printScanRun(run *arbitrage.ScanRun) {
	w := os.Stdout

	fmt.Fprintf(w, "\nscan complete: %d pairs in %s (mode=%s)\n",
		run.TotalPairs, run.Duration.Round(time.Millisecond), run.Mode)
	fmt.Fprintf(w, "opportunities: %d, pairs with opportunities: %.1f%%\n",
		run.Opportunities, run.SuccessRate*100)
	if run.Gas != nil {
		fmt.Fprintf(w, "gas at block %v: base=%v wei, tip=%v wei\n",
			run.Gas.BlockNumber, run.Gas.BaseFee, run.Gas.PriorityFee)
	}

	switch run.Mode {
	case arbitrage.RoundTrip:
		if len(run.TopRoundTrips) > 0 {
			fmt.Fprintf(w, "\ntop round trips:\n")
			for i, r := range run.TopRoundTrips {
				fmt.Fprintf(w, "%2d. buy %-24s sell %-24s profit %+.4f%%\n",
					i+1, r.BuySource.Label(), r.SellSource.Label(), r.ProfitPercent)
			}
		}
	default:
		if len(run.TopSpreads) > 0 {
			fmt.Fprintf(w, "\ntop spreads:\n")
			for i, s := range run.TopSpreads {
				fmt.Fprintf(w, "%2d. buy %-24s sell %-24s spread %.2f%%\n",
					i+1, s.BuySource.Label(), s.SellSource.Label(), s.SpreadPercent)
			}
		}
	}

	for _, r := range run.Results {
		if r.Err != "" {
			fmt.Fprintf(w, "pair %s skipped: %s\n", r.Pair, r.Err)
		}
		for _, e := range r.Exclusions {
			fmt.Fprintf(w, "pair %s excluded %s\n", r.Pair, e)
		}
	}
}
