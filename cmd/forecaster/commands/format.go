package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/model"
)

func printReport(w io.Writer, r *model.ForecastReport) error {
	fmt.Fprintf(w, "%s %d-day forecast generated %s (run %s)\n",
		r.Ticker, len(r.Forecast), r.GeneratedAt.Format("2006-01-02 15:04"), r.RunID)
	if r.History.Len() > 0 {
		last := r.History.Last()
		fmt.Fprintf(w, "History: %d smoothed closes, last %s on %s\n",
			r.History.Len(), decimal.NewFromFloat(last.Price).StringFixed(2), last.Date.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "Differencing order: %d", r.Order)
	if !r.Stationary {
		fmt.Fprint(w, " (stationarity threshold not reached)")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tClose\t")
	for _, p := range r.Forecast {
		fmt.Fprintf(tw, "%s\t%s\t\n", p.Date.Format("2006-01-02"), decimal.NewFromFloat(p.Price).StringFixed(3))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "RMSE score: %s\n", decimal.NewFromFloat(r.RMSE).StringFixed(2))
	return err
}

func printCAPM(w io.Writer, results []capm.Result, years int) error {
	fmt.Fprintf(w, "CAPM against the S&P 500 over %d year(s)\n", years)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Stock\tBeta\tExpected return\tDays\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t%d\t\n", r.Ticker,
			decimal.NewFromFloat(r.Beta).StringFixed(2),
			decimal.NewFromFloat(r.ExpectedReturn*100).StringFixed(2),
			r.Observations)
	}
	return tw.Flush()
}
