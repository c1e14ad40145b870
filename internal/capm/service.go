package capm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"TradingGuide/internal/collector"
	"TradingGuide/internal/logger"
	"TradingGuide/internal/model"
)

// IndexSymbol is the market benchmark.
const IndexSymbol = "SP500"

// DefaultStocks are compared when the caller names none.
var DefaultStocks = []string{"TSLA", "AAPL", "AMZN", "GOOGL"}

// Service fetches history and runs CAPM for several stocks at once.
type Service struct {
	Fetcher     collector.Fetcher
	RiskFree    float64
	Timeout     time.Duration
	Parallelism int
	Now         func() time.Time
	log         zerolog.Logger
}

// NewService creates a Service.
func NewService(fetcher collector.Fetcher, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		Fetcher:     fetcher,
		Timeout:     timeout,
		Parallelism: 4,
		Now:         time.Now,
		log:         logger.Component(log, "capm"),
	}
}

// Analyze compares each stock against the index over the last years years.
func (s *Service) Analyze(ctx context.Context, stocks []string, years int) ([]Result, error) {
	if years < 1 || years > 10 {
		return nil, fmt.Errorf("years must be between 1 and 10, got %d", years)
	}
	if len(stocks) == 0 {
		stocks = DefaultStocks
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	start := s.Now().AddDate(-years, 0, 0)

	index, err := s.Fetcher.FetchDailyCloses(ctx, IndexSymbol, start)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}

	results := make([]Result, len(stocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Parallelism))
	for i, ticker := range stocks {
		g.Go(func() error {
			symbol := collector.NormalizeTicker(ticker)
			series, err := s.Fetcher.FetchDailyCloses(gctx, symbol, start)
			if err != nil {
				return model.NewPipelineError(model.StageFetch, symbol, err)
			}
			res, err := Compute(series, index, s.RiskFree)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Info().Strs("stocks", stocks).Int("years", years).Msg("capm computed")
	return results, nil
}
