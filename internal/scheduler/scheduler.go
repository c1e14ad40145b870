package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/collector"
	"TradingGuide/internal/logger"
	"TradingGuide/internal/model"
	"TradingGuide/internal/notifier"
	"TradingGuide/internal/recorder"
)

// Forecaster runs one forecast request.
type Forecaster interface {
	Run(ctx context.Context, ticker string) (*model.ForecastReport, error)
}

// CAPMAnalyzer compares stocks against the market index.
type CAPMAnalyzer interface {
	Analyze(ctx context.Context, stocks []string, years int) ([]capm.Result, error)
}

// Sender delivers a message to the user.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the watchlist on a cron schedule and answers bot commands.
type Scheduler struct {
	Cron        *cron.Cron
	Forecaster  Forecaster
	CAPM        CAPMAnalyzer
	Notifier    Sender
	Recorder    recorder.Recorder
	Watchlist   []string
	Parallelism int
	RetryDelay  time.Duration // wait before retrying a transient failure
	Ctx         context.Context
	log         zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, f Forecaster, ca CAPMAnalyzer, n Sender, rec recorder.Recorder, watchlist []string, parallelism int, log zerolog.Logger) *Scheduler {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Forecaster:  f,
		CAPM:        ca,
		Notifier:    n,
		Recorder:    rec,
		Watchlist:   watchlist,
		Parallelism: parallelism,
		RetryDelay:  5 * time.Second,
		Ctx:         ctx,
		log:         logger.Component(log, "scheduler"),
	}
}

// RegisterAll registers the watchlist forecast task.
func (s *Scheduler) RegisterAll(forecastCron string) error {
	if _, err := s.Cron.AddFunc(forecastCron, s.watchlistTask); err != nil {
		return fmt.Errorf("register watchlist task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) watchlistTask() {
	if len(s.Watchlist) == 0 {
		s.log.Debug().Msg("watchlist empty, nothing to forecast")
		return
	}
	s.log.Info().Strs("watchlist", s.Watchlist).Msg("running watchlist forecasts")
	reports, failures := s.RunWatchlist(s.Ctx)
	s.trySend(notifier.FormatWatchlistSummary(reports, failures))
}

// RunWatchlist forecasts every watchlist ticker, at most Parallelism at a
// time. A failed ticker does not stop the others; a transient fetch
// failure is retried once after RetryDelay.
func (s *Scheduler) RunWatchlist(ctx context.Context) ([]*model.ForecastReport, map[string]error) {
	var (
		mu       sync.Mutex
		results  = make([]*model.ForecastReport, len(s.Watchlist))
		failures = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Parallelism)
	for i, ticker := range s.Watchlist {
		g.Go(func() error {
			report, err := s.Forecast(gctx, ticker)
			if err != nil && model.IsTransient(err) && gctx.Err() == nil {
				s.log.Warn().Err(err).Str("ticker", ticker).Dur("delay", s.RetryDelay).Msg("transient failure, retrying")
				select {
				case <-gctx.Done():
				case <-time.After(s.RetryDelay):
					report, err = s.Forecast(gctx, ticker)
				}
			}
			if err != nil {
				mu.Lock()
				failures[collector.NormalizeTicker(ticker)] = err
				mu.Unlock()
				return nil
			}
			results[i] = report
			return nil
		})
	}
	_ = g.Wait()

	reports := make([]*model.ForecastReport, 0, len(results))
	for _, r := range results {
		if r != nil {
			reports = append(reports, r)
		}
	}
	return reports, failures
}

// Forecast runs one ticker and records the outcome.
func (s *Scheduler) Forecast(ctx context.Context, ticker string) (*model.ForecastReport, error) {
	report, err := s.Forecaster.Run(ctx, ticker)
	if err != nil {
		evt := &recorder.FailureEvent{
			Ticker:  collector.NormalizeTicker(ticker),
			Kind:    model.Kind(err),
			Message: err.Error(),
		}
		var pe *model.PipelineError
		if errors.As(err, &pe) {
			evt.Stage = string(pe.Stage)
		}
		if rerr := s.Recorder.RecordFailure(evt); rerr != nil {
			s.log.Error().Err(rerr).Msg("record failure")
		}
		return nil, err
	}
	if rerr := s.Recorder.RecordRun(report); rerr != nil {
		s.log.Error().Err(rerr).Str("ticker", report.Ticker).Msg("record run")
	}
	return report, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch strings.ToLower(fields[0]) {
	case "/forecast", "/predict":
		if len(fields) < 2 {
			return "Usage: /forecast &lt;ticker&gt;"
		}
		report, err := s.Forecast(ctx, fields[1])
		if err != nil {
			return notifier.FormatError(err)
		}
		return notifier.FormatForecastReport(report)
	case "/capm":
		years, stocks := parseCAPMArgs(fields[1:])
		results, err := s.CAPM.Analyze(ctx, stocks, years)
		if err != nil {
			return notifier.FormatError(err)
		}
		if err := s.Recorder.RecordCAPM(results, years); err != nil {
			s.log.Error().Err(err).Msg("record capm")
		}
		return notifier.FormatCAPM(results, years)
	case "/watchlist":
		reports, failures := s.RunWatchlist(ctx)
		return notifier.FormatWatchlistSummary(reports, failures)
	default:
		return notifier.HelpText
	}
}

// parseCAPMArgs reads an optional leading year count followed by tickers.
func parseCAPMArgs(args []string) (int, []string) {
	years := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			years = n
			args = args[1:]
		}
	}
	stocks := make([]string, 0, len(args))
	for _, a := range args {
		for _, t := range strings.Split(a, ",") {
			if t = collector.NormalizeTicker(t); t != "" {
				stocks = append(stocks, t)
			}
		}
	}
	return years, stocks
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
