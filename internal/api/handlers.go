package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/model"
	"TradingGuide/internal/pipeline"
)

// Forecaster runs and records one forecast request.
type Forecaster interface {
	Forecast(ctx context.Context, ticker string) (*model.ForecastReport, error)
}

// CAPMAnalyzer compares stocks against the market index.
type CAPMAnalyzer interface {
	Analyze(ctx context.Context, stocks []string, years int) ([]capm.Result, error)
}

// Handler serves the forecast and CAPM endpoints.
type Handler struct {
	forecaster Forecaster
	capm       CAPMAnalyzer
}

// NewHandler creates a new Handler.
func NewHandler(f Forecaster, c CAPMAnalyzer) *Handler {
	return &Handler{forecaster: f, capm: c}
}

type pointJSON struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type forecastJSON struct {
	RunID         string      `json:"run_id"`
	Ticker        string      `json:"ticker"`
	GeneratedAt   string      `json:"generated_at"`
	HistoryPoints int         `json:"history_points"`
	LastClose     *pointJSON  `json:"last_close,omitempty"`
	Order         int         `json:"differencing_order"`
	Stationary    bool        `json:"stationary"`
	RMSE          float64     `json:"rmse"`
	Forecast      []pointJSON `json:"forecast"`
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func toForecastJSON(r *model.ForecastReport) forecastJSON {
	out := forecastJSON{
		RunID:         r.RunID,
		Ticker:        r.Ticker,
		GeneratedAt:   r.GeneratedAt.Format(time.RFC3339),
		HistoryPoints: r.History.Len(),
		Order:         r.Order,
		Stationary:    r.Stationary,
		RMSE:          r.RMSE,
		Forecast:      make([]pointJSON, len(r.Forecast)),
	}
	if r.History.Len() > 0 {
		last := r.History.Last()
		out.LastClose = &pointJSON{Date: last.Date.Format("2006-01-02"), Price: round(last.Price, 3)}
	}
	for i, p := range r.Forecast {
		out.Forecast[i] = pointJSON{Date: p.Date.Format("2006-01-02"), Price: round(p.Price, 3)}
	}
	return out
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientData),
		errors.Is(err, model.ErrDegenerateSeries),
		errors.Is(err, model.ErrModelFit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// respondPipelineError writes a failed run. retryable marks fetch
// failures the provider may answer on a later attempt.
func respondPipelineError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), map[string]interface{}{
		"error":     pipeline.Describe(err),
		"kind":      model.Kind(err),
		"retryable": model.IsTransient(err),
	})
}

// GetForecast runs the forecast pipeline for one ticker.
// GET /api/forecast/{ticker}
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(mux.Vars(r)["ticker"])
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required", "bad_request")
		return
	}
	report, err := h.forecaster.Forecast(r.Context(), ticker)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toForecastJSON(report))
}

type capmJSON struct {
	Ticker         string  `json:"ticker"`
	Beta           float64 `json:"beta"`
	ExpectedReturn float64 `json:"expected_return"`
	Observations   int     `json:"observations"`
}

// GetCAPM computes beta and expected return for the requested stocks.
// GET /api/capm?stocks=TSLA,AAPL&years=1
func (h *Handler) GetCAPM(w http.ResponseWriter, r *http.Request) {
	years := 1
	if v := r.URL.Query().Get("years"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 10 {
			respondError(w, http.StatusBadRequest, "years must be an integer between 1 and 10", "bad_request")
			return
		}
		years = n
	}
	var stocks []string
	for _, s := range strings.Split(r.URL.Query().Get("stocks"), ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			stocks = append(stocks, s)
		}
	}

	results, err := h.capm.Analyze(r.Context(), stocks, years)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	out := make([]capmJSON, len(results))
	for i, res := range results {
		out[i] = capmJSON{
			Ticker:         res.Ticker,
			Beta:           round(res.Beta, 4),
			ExpectedReturn: round(res.ExpectedReturn, 4),
			Observations:   res.Observations,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"years":   years,
		"results": out,
	})
}
