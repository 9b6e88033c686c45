package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/utils"
	"github.com/Renal37/auto-speed-shop/internal/workflow"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orderID := r.URL.Query().Get("orderId")
		_ = hub.Serve(w, r, models.OrderStatusEvent{
			OrderID:       orderID,
			Status:        workflow.StatusPendingAdminReview,
			PaymentStatus: workflow.PaymentPending,
			UpdatedAt:     utils.NewRFC3339Date(time.Now()),
		})
	}))
	t.Cleanup(server.Close)

	return hub, server
}

func dial(t *testing.T, server *httptest.Server, orderID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?orderId=" + orderID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.OrderStatusEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event models.OrderStatusEvent
	require.NoError(t, json.Unmarshal(data, &event))

	return event
}

func TestHubSendsCurrentStatusAndUpdates(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "order-1")
	other := dial(t, server, "order-2")

	initial := readEvent(t, conn)
	assert.Equal(t, "order-1", initial.OrderID)
	assert.Equal(t, workflow.StatusPendingAdminReview, initial.Status)
	readEvent(t, other)

	// Начальное событие уходит только после регистрации подписчика.
	hub.Publish(models.OrderStatusEvent{
		OrderID:       "order-1",
		Status:        workflow.StatusInvoiceSent,
		PaymentStatus: workflow.PaymentPending,
	})

	update := readEvent(t, conn)
	assert.Equal(t, workflow.StatusInvoiceSent, update.Status)

	// Подписчик другого заказа не получает чужих событий.
	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestServeAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/orders/ws?orderId=x", nil)

	err := hub.Serve(recorder, request, models.OrderStatusEvent{OrderID: "x"})
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		host    string
		origin  string
		want    bool
	}{
		{"Без заголовка Origin", nil, "shop.example", "", true},
		{"Тот же хост без списка", nil, "shop.example", "https://shop.example", true},
		{"Чужой хост без списка", nil, "shop.example", "https://evil.example", false},
		{"Источник из списка", []string{"https://app.shop.example/"}, "api.shop.example", "https://APP.shop.example", true},
		{"Другая схема", []string{"https://app.shop.example"}, "api.shop.example", "http://app.shop.example", false},
		{"Источник не из списка", []string{"https://app.shop.example"}, "api.shop.example", "https://evil.example", false},
		{"Любой источник", []string{"*"}, "shop.example", "https://evil.example", true},
		{"Некорректный Origin", []string{"https://app.shop.example"}, "shop.example", "://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/orders/ws", nil)
			request.Host = tt.host
			if tt.origin != "" {
				request.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, originChecker(tt.allowed)(request))
		})
	}
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, server := startHub(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?orderId=order-1"
	conn, res, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if conn != nil {
		_ = conn.Close()
	}

	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}
