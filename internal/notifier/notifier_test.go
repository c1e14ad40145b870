package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/model"
)

func testReport() *model.ForecastReport {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	r := &model.ForecastReport{
		Ticker:      "AAPL",
		GeneratedAt: day,
		History:     model.PriceSeries{Points: []model.PricePoint{{Date: day.AddDate(0, 0, -1), Price: 190}}},
		Order:       1,
		Stationary:  true,
		RMSE:        0.456,
	}
	for i := 0; i < 30; i++ {
		r.Forecast = append(r.Forecast, model.PricePoint{Date: day.AddDate(0, 0, i), Price: 190.12345 + float64(i)})
	}
	return r
}

func TestFormatForecastReport(t *testing.T) {
	msg := FormatForecastReport(testReport())
	assert.Contains(t, msg, "AAPL 30-day forecast")
	assert.Contains(t, msg, "2024-06-03  190.123")
	assert.Contains(t, msg, "2024-07-02  219.123")
	assert.Contains(t, msg, "RMSE score: 0.46")
	assert.NotContains(t, msg, "stationarity")
	assert.Equal(t, 30, strings.Count(msg, "\n2024-"))
}

func TestFormatForecastReport_HorizonFromForecast(t *testing.T) {
	r := testReport()
	r.Forecast = r.Forecast[:5]
	msg := FormatForecastReport(r)
	assert.Contains(t, msg, "AAPL 5-day forecast")
	assert.Equal(t, 5, strings.Count(msg, "\n2024-"))
}

func TestFormatForecastReport_NotStationary(t *testing.T) {
	r := testReport()
	r.Stationary = false
	assert.Contains(t, FormatForecastReport(r), "did not reach stationarity")
}

func TestFormatError(t *testing.T) {
	msg := FormatError(model.NewPipelineError(model.StageFetch, "ZZZZ", model.ErrNoData))
	assert.Contains(t, msg, "ZZZZ")
	assert.True(t, strings.HasPrefix(msg, "❌"))
}

func TestFormatCAPM(t *testing.T) {
	msg := FormatCAPM([]capm.Result{{Ticker: "TSLA", Beta: 1.756, ExpectedReturn: 0.2134}}, 2)
	assert.Contains(t, msg, "2 year(s)")
	assert.Contains(t, msg, "1.76")
	assert.Contains(t, msg, "21.34%")
}

func TestFormatWatchlistSummary(t *testing.T) {
	failures := map[string]error{
		"ZZZZ": model.NewPipelineError(model.StageFetch, "ZZZZ", model.ErrNoData),
		"BAD":  model.NewPipelineError(model.StageForecast, "BAD", model.ErrModelFit),
	}
	msg := FormatWatchlistSummary([]*model.ForecastReport{testReport()}, failures)
	assert.Contains(t, msg, "1 ok, 2 failed")
	assert.Contains(t, msg, "AAPL: 190.00 → 219.12")
	assert.Less(t, strings.Index(msg, "BAD"), strings.Index(msg, "ZZZZ:"))
}

func testNotifier(t *testing.T, handler http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	n.Client = srv.Client()
	return n
}

func TestSend(t *testing.T) {
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "hello", payload["text"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		w.Write([]byte(`{"ok":true}`))
	})
	assert.NoError(t, n.Send(context.Background(), "hello"))
}

func TestSendWithRetry_GivesUp(t *testing.T) {
	var calls atomic.Int32
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	err := n.SendWithRetry(context.Background(), "hello", 0)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendWithRetry_PermanentRefusal(t *testing.T) {
	var calls atomic.Int32
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
	})
	err := n.SendWithRetry(context.Background(), "<b>broken", 3)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, err.Error(), "can't parse entities")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendWithRetry_RecoversFromThrottling(t *testing.T) {
	var calls atomic.Int32
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":1}}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})
	require.NoError(t, n.SendWithRetry(context.Background(), "hello", 2))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(errors.New("reset"), 0))
	assert.Equal(t, 4*time.Second, retryDelay(errors.New("reset"), 2))
	assert.Equal(t, 30*time.Second, retryDelay(&APIError{Status: 429, RetryAfter: 30 * time.Second}, 0))
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := n.SendWithRetry(ctx, "hello", 3)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestStartPolling_DispatchesCommands(t *testing.T) {
	var polls atomic.Int32
	replies := make(chan string, 1)
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if polls.Add(1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /forecast aapl "}}]}`))
				return
			}
			assert.Equal(t, "8", r.URL.Query().Get("offset"))
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/botTOKEN/sendMessage":
			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			replies <- payload["text"]
			w.Write([]byte(`{"ok":true}`))
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string { return "got " + cmd })
		close(done)
	}()

	select {
	case reply := <-replies:
		assert.Equal(t, "got /forecast aapl", reply)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	<-done
}
