package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"go.uber.org/zap"
)

const defaultRetryAfter = 60 * time.Second

// RateLimitError провайдер ограничил частоту запросов.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("email provider rate limit, retry after %s", e.RetryAfter)
}

// ProviderError ответ провайдера с кодом, отличным от 2xx.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("email provider returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// Client отправляет письма через HTTP API провайдера (POST {base}/emails).
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		from:       config.From,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("recipient is empty")
	}

	payload, err := json.Marshal(sendRequest{From: c.from, To: []string{to}, Subject: subject, HTML: body})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		retryAfter := defaultRetryAfter
		if seconds, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(seconds) * time.Second
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &ProviderError{StatusCode: res.StatusCode, Body: string(data)}
	}

	return nil
}

// LogSender пишет письма в лог вместо отправки. Используется, когда ключ провайдера не задан.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, _ string) error {
	logger.Log.Info("email suppressed", zap.String("to", to), zap.String("subject", subject))
	return nil
}
