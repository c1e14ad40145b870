package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/model"
	"TradingGuide/internal/recorder"
)

type fakeForecaster struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeForecaster) Run(_ context.Context, ticker string) (*model.ForecastReport, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	ticker = strings.ToUpper(ticker)
	if ticker == "ZZZZ" {
		return nil, model.NewPipelineError(model.StageFetch, ticker, model.ErrNoData)
	}
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	r := &model.ForecastReport{
		RunID:       "run-" + ticker,
		Ticker:      ticker,
		GeneratedAt: day,
		History:     model.PriceSeries{Points: []model.PricePoint{{Date: day.AddDate(0, 0, -1), Price: 100}}},
		Stationary:  true,
	}
	for i := 0; i < 30; i++ {
		r.Forecast = append(r.Forecast, model.PricePoint{Date: day.AddDate(0, 0, i), Price: 101})
	}
	return r, nil
}

type fakeCAPM struct {
	stocks []string
	years  int
}

func (f *fakeCAPM) Analyze(_ context.Context, stocks []string, years int) ([]capm.Result, error) {
	f.stocks, f.years = stocks, years
	return []capm.Result{{Ticker: "TSLA", Beta: 1.5, ExpectedReturn: 0.12}}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

type memRecorder struct {
	recorder.NoopRecorder
	mu       sync.Mutex
	runs     []string
	failures []*recorder.FailureEvent
}

func (m *memRecorder) RecordRun(r *model.ForecastReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r.Ticker)
	return nil
}

func (m *memRecorder) RecordFailure(evt *recorder.FailureEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, evt)
	return nil
}

func newTestScheduler(watchlist []string, parallelism int) (*Scheduler, *fakeForecaster, *fakeSender, *memRecorder, *fakeCAPM) {
	f := &fakeForecaster{}
	snd := &fakeSender{}
	rec := &memRecorder{}
	ca := &fakeCAPM{}
	s := NewScheduler(context.Background(), f, ca, snd, rec, watchlist, parallelism, zerolog.Nop())
	return s, f, snd, rec, ca
}

func TestRunWatchlist_BoundedAndIsolated(t *testing.T) {
	s, f, _, rec, _ := newTestScheduler([]string{"AAPL", "zzzz", "MSFT", "TSLA", "NVDA", "GOOGL"}, 2)

	reports, failures := s.RunWatchlist(context.Background())
	assert.Len(t, reports, 5)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures["ZZZZ"], model.ErrNoData)
	assert.LessOrEqual(t, f.peak.Load(), int32(2))

	assert.Len(t, rec.runs, 5)
	require.Len(t, rec.failures, 1)
	assert.Equal(t, "fetch", rec.failures[0].Stage)
	assert.Equal(t, "no_data", rec.failures[0].Kind)
}

// flakyForecaster fails the first attempt for each ticker with a network
// error; DOWN never recovers.
type flakyForecaster struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *flakyForecaster) Run(ctx context.Context, ticker string) (*model.ForecastReport, error) {
	f.mu.Lock()
	f.calls[ticker]++
	n := f.calls[ticker]
	f.mu.Unlock()
	if ticker == "DOWN" || n == 1 {
		return nil, model.NewPipelineError(model.StageFetch, ticker, errors.New("connection reset by peer"))
	}
	return (&fakeForecaster{}).Run(ctx, ticker)
}

func TestRunWatchlist_RetriesTransientOnce(t *testing.T) {
	f := &flakyForecaster{calls: map[string]int{}}
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), f, &fakeCAPM{}, &fakeSender{}, rec, []string{"AAPL", "DOWN"}, 2, zerolog.Nop())
	s.RetryDelay = time.Millisecond

	reports, failures := s.RunWatchlist(context.Background())
	require.Len(t, reports, 1)
	assert.Equal(t, "AAPL", reports[0].Ticker)
	require.Len(t, failures, 1)
	assert.Equal(t, "transient", model.Kind(failures["DOWN"]))
	assert.Equal(t, 2, f.calls["AAPL"])
	assert.Equal(t, 2, f.calls["DOWN"])
}

func TestRunWatchlist_NoRetryForNoData(t *testing.T) {
	s, _, _, rec, _ := newTestScheduler([]string{"ZZZZ"}, 1)
	s.RetryDelay = time.Hour
	_, failures := s.RunWatchlist(context.Background())
	assert.ErrorIs(t, failures["ZZZZ"], model.ErrNoData)
	assert.Len(t, rec.failures, 1)
}

func TestWatchlistTask_SendsSummary(t *testing.T) {
	s, _, snd, _, _ := newTestScheduler([]string{"AAPL", "ZZZZ"}, 4)
	s.watchlistTask()
	require.Len(t, snd.sent, 1)
	assert.Contains(t, snd.sent[0], "1 ok, 1 failed")
}

func TestRegisterAll(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(nil, 1)
	require.NoError(t, s.RegisterAll("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("not a schedule"))
}

func TestHandleCommand(t *testing.T) {
	s, _, _, _, ca := newTestScheduler([]string{"AAPL"}, 1)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/forecast aapl"), "AAPL 30-day forecast")
	assert.Contains(t, s.HandleCommand(ctx, "/forecast ZZZZ"), "No price data found for ZZZZ")
	assert.Contains(t, s.HandleCommand(ctx, "/forecast"), "Usage")
	assert.Contains(t, s.HandleCommand(ctx, "/watchlist"), "1 ok, 0 failed")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/forecast")

	assert.Contains(t, s.HandleCommand(ctx, "/capm 3 tsla,aapl nvda"), "TSLA")
	assert.Equal(t, 3, ca.years)
	assert.Equal(t, []string{"TSLA", "AAPL", "NVDA"}, ca.stocks)
}

func TestParseCAPMArgs(t *testing.T) {
	years, stocks := parseCAPMArgs(nil)
	assert.Equal(t, 1, years)
	assert.Empty(t, stocks)

	years, stocks = parseCAPMArgs([]string{"msft"})
	assert.Equal(t, 1, years)
	assert.Equal(t, []string{"MSFT"}, stocks)
}
