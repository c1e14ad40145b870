package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"TradingGuide/internal/logger"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts HTML messages to one chat through the Bot API.
// Sends to the chat are paced at about one per second.
type TelegramNotifier struct {
	APIBase  string
	BotToken string
	ChatID   string
	Client   *http.Client
	limiter  *rate.Limiter
	log      zerolog.Logger
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// apiEnvelope is the body every Bot API method answers with.
type apiEnvelope struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// APIError is a request the Bot API refused.
type APIError struct {
	Status      int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram api: status %d", e.Status)
	}
	return fmt.Sprintf("telegram api: status %d: %s", e.Status, e.Description)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// NewTelegramNotifier creates a notifier. proxyURL may be empty.
func NewTelegramNotifier(botToken, chatID, proxyURL string, log zerolog.Logger) *TelegramNotifier {
	client := &http.Client{Timeout: 30 * time.Second}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
		}
	}
	return &TelegramNotifier{
		APIBase:  telegramAPI,
		BotToken: botToken,
		ChatID:   chatID,
		Client:   client,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 3),
		log:      logger.Component(log, "telegram"),
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// Send posts text to the configured chat once.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.ChatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sendMessage pacing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var env apiEnvelope
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env)
	return &APIError{
		Status:      resp.StatusCode,
		Description: env.Description,
		RetryAfter:  time.Duration(env.Parameters.RetryAfter) * time.Second,
	}
}

// SendWithRetry sends text, retrying network errors, throttling and
// server errors up to maxRetries times. Other API refusals fail at once.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var err error
	attempts := 0
	for attempts <= maxRetries {
		attempts++
		if err = t.Send(ctx, text); err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			break
		}
		if attempts > maxRetries {
			break
		}

		wait := retryDelay(err, attempts-1)
		t.log.Warn().Err(err).Int("attempt", attempts).Dur("wait", wait).Msg("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("telegram send failed after %d attempt(s): %w", attempts, err)
}

// retryDelay doubles from one second and honours the server's retry_after.
func retryDelay(err error, attempt int) time.Duration {
	d := time.Second << attempt
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > d {
		return apiErr.RetryAfter
	}
	return d
}
