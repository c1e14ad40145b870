package commands

import (
	"context"

	"github.com/spf13/cobra"

	"TradingGuide/internal/pipeline"
)

var predictCmd = &cobra.Command{
	Use:   "predict <ticker>",
	Short: "Forecast the next daily closes of a ticker",
	Long: `Fetches daily closes since the configured start date, smooths them with
a 7-day rolling mean, picks the differencing order with the ADF test, fits
ARIMA(p,d,q) and prints a forecast over the configured horizon with its
held-out RMSE.

Example:
  forecaster predict AAPL`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), a.requestTimeout())
	defer cancel()

	report, err := a.pipeline.Run(ctx, args[0])
	if err != nil {
		cmd.PrintErrln(pipeline.Describe(err))
		return err
	}
	return printReport(cmd.OutOrStdout(), report)
}
