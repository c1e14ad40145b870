package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"TradingGuide/internal/model"
)

// RESTFetcher implements Fetcher against a generic bars REST API that
// returns a JSON array of {timestamp, open, high, low, close, volume}.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
	Now     func() time.Time
	log     zerolog.Logger
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration, ratePerSec float64, log zerolog.Logger) *RESTFetcher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
		Limiter: limiter,
		Now:     time.Now,
		log:     log.With().Str("fetcher", "rest").Logger(),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the REST API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) FetchDailyCloses(ctx context.Context, symbol string, start time.Time) (model.PriceSeries, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return model.PriceSeries{}, fmt.Errorf("rest rate limit: %w", err)
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", start.Format("2006-01-02"))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusTooManyRequests:
		return model.PriceSeries{}, fmt.Errorf("fetch bars: status %d: %w", resp.StatusCode, model.ErrNoData)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return model.PriceSeries{}, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return model.PriceSeries{}, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   calendarDate(time.Unix(rb.Timestamp, 0), time.UTC),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	bars = cleanBars(bars, calendarDate(start, time.UTC))
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("rest %s: %w", symbol, model.ErrNoData)
	}
	f.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetched daily closes")
	return model.SeriesFromBars(symbol, bars, f.Now()), nil
}
