package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "forecaster",
	Short: "TradingGuide - stock price forecasting",
	Long: `TradingGuide forecasts daily closing prices 30 days ahead with an
ARIMA(3,d,3) model fitted on smoothed history, and compares stocks against
the S&P 500 with CAPM.

Examples:
  forecaster predict AAPL
  forecaster capm --stocks TSLA,AAPL --years 2
  forecaster serve`,
	SilenceUsage: true,
}

// Execute runs the root command; SIGINT and SIGTERM cancel its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfig, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
