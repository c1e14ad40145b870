package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"TradingGuide/internal/arima"
	"TradingGuide/internal/capm"
	"TradingGuide/internal/collector"
	"TradingGuide/internal/config"
	"TradingGuide/internal/logger"
	"TradingGuide/internal/metrics"
	"TradingGuide/internal/pipeline"
	"TradingGuide/internal/stats"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	fetcher  collector.Fetcher
	pipeline *pipeline.Pipeline
	capm     *capm.Service
	metrics  *metrics.Metrics
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return newApp(cfg, logger.New(level, cfg.Log.Format))
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	start, err := cfg.Start()
	if err != nil {
		return nil, err
	}

	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy,
			cfg.DataSource.Timeout, cfg.DataSource.RatePerSec, log)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100, Days: 300, Seed: 1}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.Timeout, cfg.DataSource.RatePerSec, log)
	}
	log.Info().Str("source", fetcher.Name()).Str("start", cfg.DataSource.StartDate).Msg("data source ready")

	m := metrics.New(nil)
	col := collector.NewCollector(fetcher, start, cfg.DataSource.Timeout, log)
	opts := pipeline.Options{
		Window:    cfg.Forecast.Window,
		Horizon:   cfg.Forecast.Horizon,
		MaxOrder:  cfg.Forecast.MaxOrder,
		Threshold: cfg.Forecast.Threshold,
	}
	p := pipeline.New(col, stats.ADF{}, arima.NewEstimator(cfg.Forecast.AROrder, cfg.Forecast.MAOrder), opts, log,
		pipeline.WithMetrics(m))

	svc := capm.NewService(fetcher, cfg.DataSource.Timeout, log)
	svc.Parallelism = cfg.Schedule.Parallelism
	svc.RiskFree = cfg.CAPM.RiskFree

	return &app{cfg: cfg, log: log, fetcher: fetcher, pipeline: p, capm: svc, metrics: m}, nil
}

// requestTimeout bounds one interactive command.
func (a *app) requestTimeout() time.Duration {
	return 4*a.cfg.DataSource.Timeout + time.Minute
}
