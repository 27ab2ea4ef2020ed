package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taku247/hevm-tool/arbitrage"
	umath "github.com/taku247/hevm-tool/utils/math"
)

var (
	quotePair    string
	quoteAmount  string
	quoteReverse bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote one configured pair on every venue and show all spread combinations",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		var pair *arbitrage.PairVenues
		for i := range pairs {
			if pairs[i].Name == quotePair {
				pair = &pairs[i]
				break
			}
		}
		if pair == nil {
			return fmt.Errorf("pair %q not found in config", quotePair)
		}

		tokenIn, tokenOut := pair.TokenA, pair.TokenB
		if quoteReverse {
			tokenIn, tokenOut = tokenOut, tokenIn
		}

		amount := quoteAmount
		if amount == "" {
			amount = eng.cfg.Scan.AmountIn
		}
		amountIn, err := umath.ParseUnits(amount, tokenIn.Decimals)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}

		agg := arbitrage.NewAggregator(eng.logger, nil)
		quotes, exclusions := agg.FetchAll(ctx, pair.Clients, tokenIn, tokenOut, amountIn)

		fmt.Printf("quotes for %s %s -> %s (amount %s):\n",
			pair.Name, tokenIn.Symbol, tokenOut.Symbol, amount)
		for _, q := range quotes {
			if q.Success {
				fmt.Printf("  %-28s rate %.8f  out %s  gas %d\n",
					q.Source.Label(), q.Rate, q.AmountOut, q.GasEstimate)
			}
		}
		for _, e := range exclusions {
			fmt.Printf("  excluded %s\n", e)
		}

		rows := arbitrage.NewSpreadAnalyzer().AllCombinations(quotes)
		if len(rows) > 0 {
			fmt.Printf("\nall combinations:\n")
			for _, s := range rows {
				fmt.Printf("  buy %-28s sell %-28s spread %.2f%%\n",
					s.BuySource.Label(), s.SellSource.Label(), s.SpreadPercent)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().StringVar(&quotePair, "pair", "", "pair name from config (required)")
	quoteCmd.Flags().StringVar(&quoteAmount, "amount", "", "input amount in whole token units")
	quoteCmd.Flags().BoolVar(&quoteReverse, "reverse", false, "quote token B -> token A instead")
	_ = quoteCmd.MarkFlagRequired("pair")
}
