package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, tokenCalls *int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)

		id, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", id)
		assert.Equal(t, "secret", secret)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", handler)
	mux.HandleFunc("/v2/checkout/orders/PP-1/capture", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestCreateOrder(t *testing.T) {
	var tokenCalls int32
	server := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))

		var request CreateOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, "CAPTURE", request.Intent)
		if assert.Len(t, request.PurchaseUnits, 1) {
			assert.Equal(t, "108.25", request.PurchaseUnits[0].Amount.Value)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"PP-1","status":"CREATED"}`))
	})

	client := NewClient(Config{BaseURL: server.URL, ClientID: "client", ClientSecret: "secret"})

	for i := 0; i < 2; i++ {
		order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
			PurchaseUnits: []PurchaseUnit{{Amount: &Amount{CurrencyCode: "USD", Value: NewMoney(decimal.RequireFromString("108.25")).Value}}},
		})
		require.NoError(t, err)
		assert.Equal(t, "PP-1", order.ID)
	}

	// Токен кэшируется между запросами.
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestCaptureOrderReturnsAPIError(t *testing.T) {
	var tokenCalls int32
	server := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
	})

	client := NewClient(Config{BaseURL: server.URL, ClientID: "client", ClientSecret: "secret"})

	_, err := client.CaptureOrder(context.Background(), "PP-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "UNPROCESSABLE_ENTITY")
}

func TestMissingCredentials(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost"})

	_, err := client.CaptureOrder(context.Background(), "PP-1")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCapturedTotal(t *testing.T) {
	order := Order{PurchaseUnits: []PurchaseUnit{
		{Payments: &Payments{Captures: []Capture{{Amount: NewMoney(decimal.NewFromInt(100))}, {Amount: NewMoney(decimal.RequireFromString("8.25"))}}}},
		{},
	}}

	total, err := order.CapturedTotal()
	require.NoError(t, err)
	assert.Equal(t, "108.25", total.StringFixed(2))

	broken := Order{PurchaseUnits: []PurchaseUnit{{Payments: &Payments{Captures: []Capture{{Amount: Money{Value: "x"}}}}}}}
	_, err = broken.CapturedTotal()
	assert.Error(t, err)
}
