package collector

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"TradingGuide/internal/model"
)

// Fetcher defines the interface for fetching daily close history.
type Fetcher interface {
	// FetchDailyCloses returns the daily closes for symbol from start up to
	// today. An empty answer from the provider is reported as model.ErrNoData.
	FetchDailyCloses(ctx context.Context, symbol string, start time.Time) (model.PriceSeries, error)
	Name() string
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// calendarDate strips the clock from t, keeping its calendar day in loc.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// cleanBars drops bars with unusable closes or dates before start, sorts
// the rest by date and keeps the last bar for any repeated date.
func cleanBars(bars []model.OHLCV, start time.Time) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			continue
		}
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}
