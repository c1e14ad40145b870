// Package pipeline runs one forecast request end to end:
// fetch, smooth, select the differencing order, scale, evaluate, forecast
// and assemble.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"TradingGuide/internal/arima"
	"TradingGuide/internal/assembler"
	"TradingGuide/internal/calculator"
	"TradingGuide/internal/collector"
	"TradingGuide/internal/evaluator"
	"TradingGuide/internal/logger"
	"TradingGuide/internal/metrics"
	"TradingGuide/internal/model"
	"TradingGuide/internal/scaler"
	"TradingGuide/internal/stats"
)

// Source supplies validated close history for a ticker.
type Source interface {
	Collect(ctx context.Context, ticker string) (model.PriceSeries, error)
}

// Options are the fixed forecasting parameters of a run.
type Options struct {
	Window    int
	Horizon   int
	MaxOrder  int
	Threshold float64
}

// DefaultOptions returns window 7, horizon 30, max order 5 and threshold 0.05.
func DefaultOptions() Options {
	return Options{
		Window:    calculator.DefaultWindow,
		Horizon:   evaluator.DefaultHorizon,
		MaxOrder:  stats.DefaultMaxOrder,
		Threshold: stats.DefaultThreshold,
	}
}

// Pipeline holds the collaborators of a forecast run. It keeps no per-run
// state, so one Pipeline may serve concurrent runs.
type Pipeline struct {
	source     Source
	tester     stats.StationarityTester
	forecaster arima.SeriesForecaster
	opts       Options
	metrics    *metrics.Metrics
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records stage durations and run outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the clock used to date the forecast.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(source Source, tester stats.StationarityTester, forecaster arima.SeriesForecaster, opts Options, log zerolog.Logger, options ...Option) *Pipeline {
	p := &Pipeline{
		source:     source,
		tester:     tester,
		forecaster: forecaster,
		opts:       opts,
		now:        time.Now,
		log:        logger.Component(log, "pipeline"),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// stage runs fn as the named step, timing it and tagging any error with
// the stage and ticker.
func (p *Pipeline) stage(ctx context.Context, stage model.Stage, ticker string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return model.NewPipelineError(stage, ticker, err)
	}
	started := time.Now()
	err := fn()
	elapsed := time.Since(started)
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, elapsed)
	}
	if err != nil {
		return model.NewPipelineError(stage, ticker, err)
	}
	p.log.Debug().Str("ticker", ticker).Str("stage", string(stage)).Dur("elapsed", elapsed).Msg("stage done")
	return nil
}

// Run produces a forecast report for ticker. On error no partial report
// is returned; the error is a *model.PipelineError naming the failed stage.
func (p *Pipeline) Run(ctx context.Context, ticker string) (*model.ForecastReport, error) {
	report, err := p.run(ctx, collector.NormalizeTicker(ticker))
	if p.metrics != nil {
		p.metrics.ObserveRun(report, err)
	}
	return report, err
}

func (p *Pipeline) run(ctx context.Context, ticker string) (*model.ForecastReport, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Str("ticker", ticker).Logger()

	fail := func(err error) (*model.ForecastReport, error) {
		log.Warn().Err(err).Str("kind", model.Kind(err)).Msg("forecast run failed")
		return nil, err
	}

	var history model.PriceSeries
	if err := p.stage(ctx, model.StageFetch, ticker, func() error {
		var err error
		history, err = p.source.Collect(ctx, ticker)
		return err
	}); err != nil {
		return fail(err)
	}

	var smoothed model.PriceSeries
	if err := p.stage(ctx, model.StageSmooth, ticker, func() error {
		var err error
		smoothed, err = calculator.RollingMean(history, p.opts.Window)
		return err
	}); err != nil {
		return fail(err)
	}

	var order stats.OrderResult
	if err := p.stage(ctx, model.StageStationary, ticker, func() error {
		var err error
		order, err = stats.SelectOrder(p.tester, smoothed.Values(), p.opts.Threshold, p.opts.MaxOrder)
		return err
	}); err != nil {
		return fail(err)
	}
	if order.Exhausted {
		log.Warn().
			Int("order", order.Order).
			Float64("p_value", order.PValue).
			Msg("differencing ran out of observations before the series became stationary")
	}

	var scaled model.ScaledSeries
	if err := p.stage(ctx, model.StageScale, ticker, func() error {
		var err error
		scaled, err = scaler.FitTransform(smoothed.Values())
		return err
	}); err != nil {
		return fail(err)
	}

	var rmse float64
	if err := p.stage(ctx, model.StageEvaluate, ticker, func() error {
		var err error
		rmse, err = evaluator.Evaluate(p.forecaster, scaled.Values, order.Order, p.opts.Horizon)
		return err
	}); err != nil {
		return fail(err)
	}

	var raw []float64
	if err := p.stage(ctx, model.StageForecast, ticker, func() error {
		fitted, err := p.forecaster.Fit(scaled.Values, order.Order)
		if err != nil {
			return fmt.Errorf("fit full series: %w", err)
		}
		raw, err = fitted.Forecast(p.opts.Horizon)
		return err
	}); err != nil {
		return fail(err)
	}

	generatedAt := p.now()
	var forecast model.ForecastSeries
	if err := p.stage(ctx, model.StageAssemble, ticker, func() error {
		forecast = assembler.AssembleN(raw, scaled.Params, generatedAt, p.opts.Horizon)
		return nil
	}); err != nil {
		return fail(err)
	}

	report := &model.ForecastReport{
		RunID:       runID,
		Ticker:      ticker,
		GeneratedAt: generatedAt,
		History:     smoothed,
		Order:       order.Order,
		Stationary:  order.Stationary,
		RMSE:        rmse,
		Forecast:    forecast,
	}
	log.Info().
		Int("history", history.Len()).
		Int("order", order.Order).
		Bool("stationary", order.Stationary).
		Float64("rmse", rmse).
		Dur("elapsed", time.Since(started)).
		Msg("forecast ready")
	return report, nil
}

// Describe maps a pipeline error to a message suitable for an end user.
func Describe(err error) string {
	var pe *model.PipelineError
	ticker := "this ticker"
	if errors.As(err, &pe) && pe.Ticker != "" {
		ticker = pe.Ticker
	}
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrNoData):
		return fmt.Sprintf("No price data found for %s. Check the ticker symbol or try again later.", ticker)
	case errors.Is(err, model.ErrInsufficientData):
		return fmt.Sprintf("Not enough price history for %s to build a forecast.", ticker)
	case errors.Is(err, model.ErrDegenerateSeries):
		return fmt.Sprintf("The price of %s did not change over the period, so it cannot be modelled.", ticker)
	case errors.Is(err, model.ErrModelFit):
		return fmt.Sprintf("The forecasting model could not be fitted to %s. Try another ticker.", ticker)
	case errors.Is(err, context.DeadlineExceeded):
		return "The market data provider took too long to respond. Please try again."
	default:
		return "Market data is temporarily unavailable. Please try again."
	}
}
