package commands

import (
	"context"

	"github.com/spf13/cobra"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/pipeline"
)

var (
	capmStocks []string
	capmYears  int
)

var capmCmd = &cobra.Command{
	Use:   "capm",
	Short: "Beta and CAPM expected return against the S&P 500",
	Long: `Joins each stock's daily closes with the S&P 500 on date, computes beta
from daily returns and the CAPM expected annual return.

Example:
  forecaster capm --stocks TSLA,AAPL,AMZN,GOOGL --years 1`,
	RunE: runCAPM,
}

func init() {
	capmCmd.Flags().StringSliceVar(&capmStocks, "stocks", capm.DefaultStocks, "stocks to compare")
	capmCmd.Flags().IntVar(&capmYears, "years", 1, "years of history (1-10)")
	rootCmd.AddCommand(capmCmd)
}

func runCAPM(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), a.requestTimeout())
	defer cancel()

	results, err := a.capm.Analyze(ctx, capmStocks, capmYears)
	if err != nil {
		cmd.PrintErrln(pipeline.Describe(err))
		return err
	}
	return printCAPM(cmd.OutOrStdout(), results, capmYears)
}
