package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/taku247/hevm-tool/config"
	"github.com/taku247/hevm-tool/utils"
)

var (
	cfgFile string
	debug   bool
	silent  bool
)

var rootCmd = &cobra.Command{
	Use:   "hevm-tool",
	Short: "DEX quote aggregation and arbitrage analysis for EVM chains",
	Long: `A CLI tool that fetches swap quotes from V2 routers and V3 quoters,
normalizes them into comparable rates, and detects price spreads and
round-trip arbitrage opportunities across venues.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "suppress per-quote logging")
}

func initConfig() {
	_ = config.LoadEnv()
	utils.InitLogger(debug)
}
