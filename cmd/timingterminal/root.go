package main

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "timingterminal",
	Short: "LTH Supply Dynamics phase score pipeline",
	Long: `TimingTerminal turns long-term-holder SOPR/MVRV (or, without on-chain
data, BTC price momentum) into a 0-100 phase score, keeps a durable score
history and publishes chart-data.json with a data-quality verdict.

Examples:
  timingterminal run
  timingterminal schedule --run-on-start
  timingterminal serve --with-scheduler
  timingterminal history --days 30
  timingterminal analyze --horizons 90,180,365`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json|console)")

	rootCmd.AddCommand(runCmd, scheduleCmd, serveCmd, historyCmd, analyzeCmd)
}
