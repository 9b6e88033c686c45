package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"

	StatusCompleted = "COMPLETED"

	// tokenLeeway токен обновляется заранее, чтобы не отправить запрос с истекающим токеном.
	tokenLeeway = 60 * time.Second
)

var ErrMissingCredentials = errors.New("paypal credentials are not configured")

// APIError ответ PayPal с кодом, отличным от 2xx. Body сохраняется для диагностики.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client клиент PayPal REST API v2 (Orders).
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = SandboxBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		httpClient:   &http.Client{Timeout: config.Timeout},
	}
}

type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// NewMoney форматирует сумму в долларах с двумя знаками.
func NewMoney(amount decimal.Decimal) Money {
	return Money{CurrencyCode: "USD", Value: amount.StringFixed(2)}
}

type Breakdown struct {
	ItemTotal *Money `json:"item_total,omitempty"`
	Shipping  *Money `json:"shipping,omitempty"`
	TaxTotal  *Money `json:"tax_total,omitempty"`
}

type Amount struct {
	CurrencyCode string     `json:"currency_code"`
	Value        string     `json:"value"`
	Breakdown    *Breakdown `json:"breakdown,omitempty"`
}

type Item struct {
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	UnitAmount Money  `json:"unit_amount"`
	SKU        string `json:"sku,omitempty"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Money  `json:"amount"`
}

type Payments struct {
	Captures []Capture `json:"captures,omitempty"`
}

type PurchaseUnit struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	CustomID    string    `json:"custom_id,omitempty"`
	InvoiceID   string    `json:"invoice_id,omitempty"`
	Amount      *Amount   `json:"amount,omitempty"`
	Items       []Item    `json:"items,omitempty"`
	Payments    *Payments `json:"payments,omitempty"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type CreateOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units,omitempty"`
	Links         []Link         `json:"links,omitempty"`
}

// CapturedTotal суммирует все захваченные суммы по всем purchase units.
func (o *Order) CapturedTotal() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, unit := range o.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			value, err := decimal.NewFromString(capture.Amount.Value)
			if err != nil {
				return decimal.Zero, fmt.Errorf("invalid capture amount %q: %w", capture.Amount.Value, err)
			}
			total = total.Add(value)
		}
	}
	return total, nil
}

// CreateOrder создаёт заказ PayPal с intent CAPTURE.
func (c *Client) CreateOrder(ctx context.Context, request CreateOrderRequest) (*Order, error) {
	if request.Intent == "" {
		request.Intent = "CAPTURE"
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", request, &order); err != nil {
		return nil, err
	}

	logger.Log.Info("paypal order created", zap.String("paypalOrderID", order.ID), zap.String("status", order.Status))

	return &order, nil
}

// CaptureOrder списывает средства по одобренному покупателем заказу.
func (c *Client) CaptureOrder(ctx context.Context, paypalOrderID string) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(paypalOrderID))
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &order); err != nil {
		return nil, err
	}

	logger.Log.Info("paypal order captured", zap.String("paypalOrderID", order.ID), zap.String("status", order.Status))

	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal paypal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to paypal: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read paypal response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{StatusCode: res.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to unmarshal paypal response: %w", err)
	}

	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token возвращает кэшированный OAuth2 токен или запрашивает новый.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrMissingCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request paypal token: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: res.StatusCode, Body: string(data)}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	c.accessToken = parsed.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn)*time.Second - tokenLeeway)

	return c.accessToken, nil
}
