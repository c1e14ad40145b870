package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/model"
	"TradingGuide/internal/pipeline"
)

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatForecastReport renders a report as a Telegram message: the
// forecast table with prices to 3 decimals, followed by the RMSE.
func FormatForecastReport(r *model.ForecastReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>%s %d-day forecast</b> | %s\n\n",
		html.EscapeString(r.Ticker), len(r.Forecast), r.GeneratedAt.Format("2006-01-02")))
	if r.History.Len() > 0 {
		last := r.History.Last()
		b.WriteString(fmt.Sprintf("Last smoothed close: %s (%s)\n", fixed(last.Price, 2), last.Date.Format("2006-01-02")))
	}
	b.WriteString(fmt.Sprintf("Differencing order: %d\n", r.Order))
	if !r.Stationary {
		b.WriteString("⚠️ Series did not reach stationarity at the chosen order\n")
	}

	b.WriteString("\n<pre>")
	b.WriteString("Date         Close\n")
	for _, p := range r.Forecast {
		b.WriteString(fmt.Sprintf("%s  %s\n", p.Date.Format("2006-01-02"), fixed(p.Price, 3)))
	}
	b.WriteString("</pre>\n")
	b.WriteString(fmt.Sprintf("RMSE score: %s", fixed(r.RMSE, 2)))
	return b.String()
}

// FormatError renders a failed run for the user.
func FormatError(err error) string {
	return "❌ " + html.EscapeString(pipeline.Describe(err))
}

// FormatCAPM renders CAPM results.
func FormatCAPM(results []capm.Result, years int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>CAPM vs S&amp;P 500</b> | %d year(s)\n\n", years))
	b.WriteString("<pre>")
	b.WriteString("Stock   Beta   Return\n")
	for _, r := range results {
		b.WriteString(fmt.Sprintf("%-6s %6s %7s%%\n",
			html.EscapeString(r.Ticker), fixed(r.Beta, 2), fixed(r.ExpectedReturn*100, 2)))
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatWatchlistSummary renders the outcome of a scheduled watchlist run.
func FormatWatchlistSummary(reports []*model.ForecastReport, failures map[string]error) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗓 <b>Watchlist forecasts</b> | %d ok, %d failed\n\n", len(reports), len(failures)))
	for _, r := range reports {
		if len(r.Forecast) == 0 || r.History.Len() == 0 {
			continue
		}
		last := r.History.Last().Price
		end := r.Forecast[len(r.Forecast)-1]
		change := (end.Price - last) / last * 100
		b.WriteString(fmt.Sprintf("%s: %s → %s (%+.1f%%) by %s, RMSE %s\n",
			html.EscapeString(r.Ticker), fixed(last, 2), fixed(end.Price, 2), change,
			end.Date.Format("01-02"), fixed(r.RMSE, 2)))
	}
	tickers := make([]string, 0, len(failures))
	for ticker := range failures {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	for _, ticker := range tickers {
		b.WriteString(fmt.Sprintf("❌ %s: %s\n", html.EscapeString(ticker), html.EscapeString(pipeline.Describe(failures[ticker]))))
	}
	return b.String()
}

// HelpText lists the supported bot commands.
const HelpText = `🤖 <b>Commands</b>
/forecast &lt;ticker&gt; - daily price forecast
/capm [years] [tickers...] - beta and expected return vs S&amp;P 500
/watchlist - forecasts for the configured watchlist
/help - this message`
