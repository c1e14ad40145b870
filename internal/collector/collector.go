package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"TradingGuide/internal/logger"
	"TradingGuide/internal/model"
)

// MockFetcher returns controllable data for development and testing.
// With no Bars set it generates a seeded random walk of Days business days
// ending today.
type MockFetcher struct {
	Price float64
	Days  int
	Seed  int64
	Bars  []model.OHLCV
	Err   error
	Now   func() time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyCloses(ctx context.Context, symbol string, start time.Time) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	bars := m.Bars
	if bars == nil {
		bars = generateMockBars(m.Price, m.Days, m.Seed, now)
	}
	bars = cleanBars(bars, calendarDate(start, time.UTC))
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("mock %s: %w", symbol, model.ErrNoData)
	}
	return model.SeriesFromBars(symbol, bars, now), nil
}

func generateMockBars(basePrice float64, count int, seed int64, now time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	if count <= 0 {
		count = 300
	}
	rng := rand.New(rand.NewSource(seed))
	dates := make([]time.Time, 0, count)
	for d := calendarDate(now, time.UTC); len(dates) < count; d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}

	bars := make([]model.OHLCV, count)
	p := basePrice
	for i := 0; i < count; i++ {
		p *= math.Exp(0.0003 + 0.015*rng.NormFloat64())
		bars[i] = model.OHLCV{
			Time:   dates[count-1-i],
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches validated close history with a bounded wait.
type Collector struct {
	Fetcher Fetcher
	Start   time.Time
	Timeout time.Duration
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, start time.Time, timeout time.Duration, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		Start:   start,
		Timeout: timeout,
		log:     logger.Component(log, "collector").With().Str("source", fetcher.Name()).Logger(),
	}
}

// NormalizeTicker upper-cases and trims a user-supplied ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Collect fetches the close history for ticker.
func (c *Collector) Collect(ctx context.Context, ticker string) (model.PriceSeries, error) {
	symbol := NormalizeTicker(ticker)
	if symbol == "" {
		return model.PriceSeries{}, fmt.Errorf("empty ticker: %w", model.ErrNoData)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	started := time.Now()
	series, err := c.Fetcher.FetchDailyCloses(ctx, symbol, c.Start)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	if series.Len() == 0 {
		return model.PriceSeries{}, fmt.Errorf("fetch %s: %w", symbol, model.ErrNoData)
	}
	if err := series.Validate(); err != nil {
		return model.PriceSeries{}, fmt.Errorf("invalid series from %s: %w", c.Fetcher.Name(), err)
	}
	c.log.Debug().
		Str("ticker", symbol).
		Int("points", series.Len()).
		Dur("elapsed", time.Since(started)).
		Msg("history collected")
	return series, nil
}
