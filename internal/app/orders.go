package router

import (
	"errors"
	"net/http"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/middlewares"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/realtime"
	"go.uber.org/zap"
)

type statusUpdateResponse struct {
	Message string        `json:"message"`
	Order   *models.Order `json:"order"`
}

// GetOrderStatus возвращает текущий статус заказа и его историю.
func GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)
	if orderService == nil {
		return
	}

	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		middlewares.WriteJSONError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	view, err := (*orderService).GetOrderStatus(r.Context(), orderID, middlewares.LookupUser(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	middlewares.EncodeJSONResponse(w, view)
}

// GetOrders возвращает заказы текущего пользователя, начиная с новых.
func GetOrders(w http.ResponseWriter, r *http.Request) {
	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)
	if orderService == nil {
		return
	}

	user := middlewares.GetUserFromContext(w, r)
	if user == nil {
		return
	}

	orders, err := (*orderService).GetOrders(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if orders == nil {
		orders = []models.Order{}
	}

	middlewares.EncodeJSONResponse(w, orders)
}

// UpdateOrderStatus меняет статус заказа. Доступно только администратору.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	data, ok := middlewares.GetParsedJSONData[models.StatusUpdate](w, r)
	if !ok {
		return
	}

	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)
	if orderService == nil {
		return
	}

	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		middlewares.WriteJSONError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	order, err := (*orderService).UpdateOrderStatus(r.Context(), orderID, data, middlewares.LookupUser(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	middlewares.EncodeJSONResponse(w, statusUpdateResponse{
		Message: "Order status updated",
		Order:   order,
	})
}

// GetAllowedTransitions возвращает статусы, в которые можно перевести заказ.
func GetAllowedTransitions(w http.ResponseWriter, r *http.Request) {
	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)
	if orderService == nil {
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		middlewares.WriteJSONError(w, http.StatusBadRequest, "status is required")
		return
	}

	result, err := (*orderService).AllowedTransitions(status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	middlewares.EncodeJSONResponse(w, result)
}

// SubscribeOrderStatus открывает websocket с обновлениями статуса заказа.
// Права проверяются так же, как при чтении статуса.
func (router *Router) SubscribeOrderStatus(w http.ResponseWriter, r *http.Request) {
	if router.statusStream == nil {
		middlewares.WriteJSONError(w, http.StatusNotFound, "status updates are disabled")
		return
	}

	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)
	if orderService == nil {
		return
	}

	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		middlewares.WriteJSONError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	view, err := (*orderService).GetOrderStatus(r.Context(), orderID, middlewares.LookupUser(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := router.statusStream.Serve(w, r, models.StatusEventOf(view.Order)); err != nil {
		if errors.Is(err, realtime.ErrHubStopped) {
			middlewares.WriteJSONError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}

		// Ответ с ошибкой уже отправлен при неудачном upgrade.
		logger.Log.Warn("websocket upgrade failed", zap.String("orderID", orderID), zap.Error(err))
	}
}
