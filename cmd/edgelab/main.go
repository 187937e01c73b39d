package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "edgelab",
	Short: "EdgeLab - signal-driven backtesting toolkit",
	Long: `EdgeLab fetches historical OHLCV bars, evaluates indicator-based
entry/exit rules and replays them through a trading simulator with
slippage, commission, trailing stops and a drawdown kill-switch.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
