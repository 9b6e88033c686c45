package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/database"
	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/utils"
	"github.com/Renal37/auto-speed-shop/internal/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService чтение статуса заказа покупателем и смена статуса администратором.
type OrderService struct {
	storage   orderStorage
	notifier  notificationEnqueuer
	publisher statusPublisher
	now       func() time.Time
}

type orderStorage interface {
	FindOrder(ctx context.Context, orderID string) (*database.OrderDB, error)
	FindOrdersByUser(ctx context.Context, userID string) ([]database.OrderDB, error)
	UpdateOrderStatus(ctx context.Context, update database.StatusUpdateDB) (*database.OrderDB, error)
}

type notificationEnqueuer interface {
	Enqueue(ctx context.Context, notification models.Notification) error
}

type statusPublisher interface {
	Publish(event models.OrderStatusEvent)
}

func NewOrderService(storage orderStorage, notifier notificationEnqueuer, publisher statusPublisher) *OrderService {
	return &OrderService{
		storage:   storage,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// GetOrderStatus возвращает текущий статус заказа и восстановленную историю.
// Заказ пользователя доступен владельцу и администратору, гостевой заказ доступен по ID.
func (o *OrderService) GetOrderStatus(ctx context.Context, orderID string, caller *models.User) (models.OrderStatusView, error) {
	order, err := o.findOrder(ctx, orderID)
	if err != nil {
		return models.OrderStatusView{}, err
	}

	if order.UserID != nil && !canRead(order, caller) {
		return models.OrderStatusView{}, ErrPermissionDenied
	}

	result := orderFromDB(*order)

	return models.OrderStatusView{
		CurrentStatus: result.Status,
		PaymentStatus: result.PaymentStatus,
		StatusHistory: historyOf(*order),
		Order:         result,
	}, nil
}

// GetOrders возвращает заказы пользователя, начиная с новых.
func (o *OrderService) GetOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := o.storage.FindOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]models.Order, len(orders))
	for i, order := range orders {
		result[i] = orderFromDB(order)
	}

	return result, nil
}

// UpdateOrderStatus меняет статус заказа от имени администратора.
// Переход проверяется по единой таблице workflow.ValidateTransition.
func (o *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, update models.StatusUpdate, caller *models.User) (*models.Order, error) {
	if caller == nil || !caller.IsAdmin {
		return nil, ErrPermissionDenied
	}

	if update.Status == nil {
		return nil, fmt.Errorf("%w: status is required", ErrValidation)
	}

	next, err := workflow.ParseStatus(*update.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, err.Error())
	}

	current, err := o.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !workflow.ValidateTransition(current.Status.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, current.Status.Status, next)
	}

	now := o.now().UTC()
	change := database.StatusUpdateDB{
		OrderID:   current.ID,
		Status:    database.OrderStatusDB{Status: next},
		Notes:     update.Notes,
		UpdatedAt: now,
	}

	if payment, ok := workflow.PaymentStatusFor(next); ok {
		change.PaymentStatus = &database.PaymentStatusDB{PaymentStatus: payment}
	}

	switch next {
	case workflow.StatusShipped:
		change.ShippedAt = &now
	case workflow.StatusDelivered:
		change.DeliveredAt = &now
	}

	updated, err := o.storage.UpdateOrderStatus(ctx, change)
	if err != nil {
		return nil, err
	}

	if updated == nil {
		return nil, ErrOrderNotFound
	}

	result := orderFromDB(*updated)

	logger.Log.Info("order status updated",
		zap.String("orderID", result.ID),
		zap.String("from", string(current.Status.Status)),
		zap.String("to", string(result.Status)),
		zap.String("admin", caller.Login),
	)

	o.afterStatusChange(ctx, result)

	return &result, nil
}

// AllowedTransitions возвращает статусы, доступные администратору из текущего.
func (o *OrderService) AllowedTransitions(status string) (models.AllowedTransitions, error) {
	current, err := workflow.ParseStatus(status)
	if err != nil {
		return models.AllowedTransitions{}, fmt.Errorf("%w: %s", ErrInvalidStatus, err.Error())
	}

	return models.AllowedTransitions{
		Status:  current,
		Allowed: workflow.AllowedTransitions(current),
	}, nil
}

func (o *OrderService) findOrder(ctx context.Context, orderID string) (*database.OrderDB, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, fmt.Errorf("%w: orderId is invalid", ErrValidation)
	}

	order, err := o.storage.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order == nil {
		return nil, ErrOrderNotFound
	}

	return order, nil
}

// afterStatusChange рассылает событие подписчикам и ставит письмо в очередь.
// Ошибки только логируются: статус уже сохранён.
func (o *OrderService) afterStatusChange(ctx context.Context, order models.Order) {
	if o.publisher != nil {
		o.publisher.Publish(models.StatusEventOf(order))
	}

	if o.notifier == nil || order.ShippingAddress.Email == "" {
		return
	}

	if err := o.notifier.Enqueue(ctx, statusChangedNotification(order)); err != nil {
		logger.Log.Error("failed to enqueue status notification", zap.String("orderID", order.ID), zap.Error(err))
	}
}

func canRead(order *database.OrderDB, caller *models.User) bool {
	if caller == nil {
		return false
	}
	return caller.IsAdmin || (order.UserID != nil && *order.UserID == caller.ID)
}

func historyOf(order database.OrderDB) []models.StatusHistoryEntry {
	history := workflow.DeriveHistory(workflow.Timeline{
		Status:      order.Status.Status,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		ShippedAt:   order.ShippedAt,
		DeliveredAt: order.DeliveredAt,
	})

	result := make([]models.StatusHistoryEntry, len(history))
	for i, entry := range history {
		result[i] = models.StatusHistoryEntry{
			Status:      entry.Status,
			Timestamp:   utils.NewRFC3339Date(entry.Timestamp),
			Description: entry.Description,
			Estimated:   entry.Estimated,
		}
	}

	return result
}

func orderFromDB(order database.OrderDB) models.Order {
	items := make([]models.OrderItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		}
	}

	return models.Order{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Status:          order.Status.Status,
		PaymentStatus:   order.PaymentStatus.PaymentStatus,
		Subtotal:        order.Subtotal,
		ShippingAmount:  order.ShippingAmount,
		TaxAmount:       order.TaxAmount,
		TotalAmount:     order.TotalAmount,
		PayPalOrderID:   order.PayPalOrderID,
		ShippingAddress: order.ShippingAddress,
		Notes:           order.Notes,
		Items:           items,
		CreatedAt:       utils.NewRFC3339Date(order.CreatedAt),
		UpdatedAt:       utils.NewRFC3339Date(order.UpdatedAt),
		ShippedAt:       utils.NullableRFC3339Date(order.ShippedAt),
		DeliveredAt:     utils.NullableRFC3339Date(order.DeliveredAt),
	}
}
