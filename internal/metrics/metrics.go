package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TradingGuide/internal/model"
)

// Metrics holds the Prometheus metrics for forecast runs.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec   // labels: outcome
	StageDuration *prometheus.HistogramVec // labels: stage
	HistoryPoints prometheus.Histogram
	ForecastRMSE  *prometheus.GaugeVec // labels: ticker
	DiffOrder     *prometheus.GaugeVec // labels: ticker

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecaster_runs_total",
			Help: "Forecast pipeline runs by outcome",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecaster_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		HistoryPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forecaster_history_points",
			Help:    "Number of daily closes fetched per run",
			Buckets: prometheus.ExponentialBuckets(16, 2, 8),
		}),
		ForecastRMSE: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecaster_rmse",
			Help: "Held-out RMSE of the latest run, scaled units",
		}, []string{"ticker"}),
		DiffOrder: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecaster_differencing_order",
			Help: "Differencing order selected by the latest run",
		}, []string{"ticker"}),
		gatherer: reg,
	}
	reg.MustRegister(m.RunsTotal, m.StageDuration, m.HistoryPoints, m.ForecastRMSE, m.DiffOrder)
	return m
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage model.Stage, d time.Duration) {
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// ObserveRun records the outcome of one run. report may be nil on failure.
func (m *Metrics) ObserveRun(report *model.ForecastReport, err error) {
	m.RunsTotal.WithLabelValues(model.Kind(err)).Inc()
	if err != nil || report == nil {
		return
	}
	m.HistoryPoints.Observe(float64(report.History.Len()))
	m.ForecastRMSE.WithLabelValues(report.Ticker).Set(report.RMSE)
	m.DiffOrder.WithLabelValues(report.Ticker).Set(float64(report.Order))
}

// Handler serves the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
