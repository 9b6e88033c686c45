package realtime

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"go.uber.org/zap"
)

var ErrHubStopped = errors.New("status hub is stopped")

// Serve переводит запрос на websocket, отправляет текущий статус заказа
// и подписывает соединение на дальнейшие изменения.
// Права на чтение заказа проверяются до вызова.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, current models.OrderStatusEvent) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой.
		return err
	}

	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		orderID: current.OrderID,
	}

	initial, err := json.Marshal(current)
	if err != nil {
		_ = conn.Close()
		return err
	}
	c.send <- initial

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return ErrHubStopped
	}

	go c.writePump()
	go c.readPump()

	logger.Log.Debug("status subscriber connected", zap.String("orderID", current.OrderID))

	return nil
}
