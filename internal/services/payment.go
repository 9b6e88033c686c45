package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/database"
	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/paypal"
	"github.com/Renal37/auto-speed-shop/internal/pricing"
	"github.com/Renal37/auto-speed-shop/internal/utils"
	"github.com/Renal37/auto-speed-shop/internal/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MismatchPolicy поведение при расхождении списанной суммы и суммы заказа.
type MismatchPolicy string

const (
	MismatchWarn   MismatchPolicy = "warn"
	MismatchReject MismatchPolicy = "reject"

	// orderNumberAttempts сколько раз генерируется новый номер при коллизии.
	orderNumberAttempts = 3

	messageCaptured        = "Payment captured successfully"
	messageNotCompleted    = "Payment was not completed"
	messageAlreadyCaptured = "Payment already captured"
)

func ParseMismatchPolicy(value string) (MismatchPolicy, error) {
	switch MismatchPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", MismatchWarn:
		return MismatchWarn, nil
	case MismatchReject:
		return MismatchReject, nil
	default:
		return "", fmt.Errorf("unknown amount mismatch policy %q", value)
	}
}

// PaymentService оформление заказа и списание оплаты через PayPal.
type PaymentService struct {
	storage   paymentStorage
	gateway   paymentGateway
	notifier  notificationEnqueuer
	publisher statusPublisher
	policy    MismatchPolicy
	now       func() time.Time
}

type paymentStorage interface {
	FindProducts(ctx context.Context, ids []string) ([]database.ProductDB, error)
	CreateOrder(ctx context.Context, order database.OrderDB) error
	FindOrder(ctx context.Context, orderID string) (*database.OrderDB, error)
	UpdatePayment(ctx context.Context, update database.PaymentUpdateDB) error
	UpdateOrderStatus(ctx context.Context, update database.StatusUpdateDB) (*database.OrderDB, error)
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, request paypal.CreateOrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, paypalOrderID string) (*paypal.Order, error)
}

func NewPaymentService(
	storage paymentStorage,
	gateway paymentGateway,
	notifier notificationEnqueuer,
	publisher statusPublisher,
	policy MismatchPolicy,
) *PaymentService {
	return &PaymentService{
		storage:   storage,
		gateway:   gateway,
		notifier:  notifier,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
	}
}

// CreateOrder создаёт локальный заказ и заказ PayPal на ту же сумму.
// Цены берутся только из каталога, сумма считается на сервере.
func (ps *PaymentService) CreateOrder(ctx context.Context, request models.CheckoutRequest, caller *models.User) (models.CheckoutResult, error) {
	if err := validateCheckout(request); err != nil {
		return models.CheckoutResult{}, err
	}

	items, err := ps.priceCart(ctx, request.CartItems)
	if err != nil {
		return models.CheckoutResult{}, err
	}

	lines := make([]pricing.Line, len(items))
	for i, item := range items {
		lines[i] = pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}
	total := pricing.Compute(lines)

	now := ps.now().UTC()
	order := database.OrderDB{
		ID:              uuid.NewString(),
		UserID:          ownerOf(request, caller),
		Status:          database.OrderStatusDB{Status: workflow.StatusPendingAdminReview},
		PaymentStatus:   database.PaymentStatusDB{PaymentStatus: workflow.PaymentInitiated},
		Subtotal:        total.Subtotal,
		ShippingAmount:  total.Shipping,
		TaxAmount:       total.Tax,
		TotalAmount:     total.Total,
		ShippingAddress: *request.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           items,
	}

	if err := ps.insertOrder(ctx, &order); err != nil {
		return models.CheckoutResult{}, err
	}

	logger.Log.Info("order created",
		zap.String("orderID", order.ID),
		zap.String("orderNumber", order.OrderNumber),
		zap.Stringer("total", order.TotalAmount),
	)

	paypalOrder, err := ps.gateway.CreateOrder(ctx, paypalRequestOf(order))
	if err != nil {
		ps.setPayment(ctx, order.ID, workflow.PaymentFailed)
		return models.CheckoutResult{}, fmt.Errorf("failed to create paypal order: %w", err)
	}

	if err := ps.storage.UpdatePayment(ctx, database.PaymentUpdateDB{
		OrderID:       order.ID,
		PaymentStatus: database.PaymentStatusDB{PaymentStatus: workflow.PaymentPending},
		PayPalOrderID: &paypalOrder.ID,
		UpdatedAt:     ps.now().UTC(),
	}); err != nil {
		return models.CheckoutResult{}, err
	}

	ps.notify(ctx, orderPlacedNotification(orderFromDB(order)))

	return models.CheckoutResult{
		PayPalOrderID: paypalOrder.ID,
		LocalOrderID:  order.ID,
		OrderNumber:   order.OrderNumber,
	}, nil
}

// CaptureOrder списывает оплату по заказу PayPal и обновляет локальный заказ.
// Повторный вызов для оплаченного заказа возвращает его без обращения к PayPal.
func (ps *PaymentService) CaptureOrder(ctx context.Context, request models.CaptureRequest) (models.CaptureResult, error) {
	if request.PayPalOrderID == nil || strings.TrimSpace(*request.PayPalOrderID) == "" {
		return models.CaptureResult{}, fmt.Errorf("%w: paypalOrderId is required", ErrValidation)
	}
	if request.LocalOrderID == nil || strings.TrimSpace(*request.LocalOrderID) == "" {
		return models.CaptureResult{}, fmt.Errorf("%w: localOrderId is required", ErrValidation)
	}

	paypalOrderID := strings.TrimSpace(*request.PayPalOrderID)
	localOrderID := strings.TrimSpace(*request.LocalOrderID)

	if _, err := uuid.Parse(localOrderID); err != nil {
		return models.CaptureResult{}, fmt.Errorf("%w: localOrderId is invalid", ErrValidation)
	}

	order, err := ps.storage.FindOrder(ctx, localOrderID)
	if err != nil {
		return models.CaptureResult{}, err
	}
	if order == nil {
		return models.CaptureResult{}, ErrOrderNotFound
	}

	if order.PayPalOrderID == nil {
		// Заказ PayPal не был создан или не сохранился: списывать нечего.
		if order.PaymentStatus.PaymentStatus == workflow.PaymentFailed {
			return models.CaptureResult{}, fmt.Errorf("%w: payment failed", ErrOrderClosed)
		}
		return models.CaptureResult{}, fmt.Errorf("%w: order has no paypal order", ErrValidation)
	}
	if *order.PayPalOrderID != paypalOrderID {
		return models.CaptureResult{}, fmt.Errorf("%w: paypalOrderId doesn't belong to the order", ErrValidation)
	}

	if order.PaymentStatus.PaymentStatus == workflow.PaymentCompleted {
		return models.CaptureResult{Message: messageAlreadyCaptured, LocalOrder: orderFromDB(*order)}, nil
	}

	if order.Status.Closed() {
		return models.CaptureResult{}, fmt.Errorf("%w: %s", ErrOrderClosed, order.Status.Status)
	}

	captured, err := ps.gateway.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		ps.setPayment(ctx, order.ID, workflow.PaymentFailed)
		return models.CaptureResult{}, fmt.Errorf("failed to capture paypal order: %w", err)
	}

	if captured.Status != paypal.StatusCompleted {
		logger.Log.Warn("paypal capture is not completed",
			zap.String("orderID", order.ID),
			zap.String("paypalOrderID", paypalOrderID),
			zap.String("status", captured.Status),
		)

		updated, err := ps.failPayment(ctx, order.ID)
		if err != nil {
			return models.CaptureResult{}, err
		}

		return models.CaptureResult{Message: messageNotCompleted, LocalOrder: updated, PayPal: captured}, nil
	}

	if err := ps.checkCapturedAmount(ctx, order, captured); err != nil {
		return models.CaptureResult{}, err
	}

	completed := database.PaymentStatusDB{PaymentStatus: workflow.PaymentCompleted}
	updatedDB, err := ps.storage.UpdateOrderStatus(ctx, database.StatusUpdateDB{
		OrderID:       order.ID,
		Status:        database.OrderStatusDB{Status: workflow.StatusConfirmed},
		PaymentStatus: &completed,
		UpdatedAt:     ps.now().UTC(),
	})
	if err == nil && updatedDB == nil {
		err = ErrOrderNotFound
	}
	if err != nil {
		// Деньги уже списаны, локальный заказ остался в прежнем состоянии.
		logger.Log.Error("failed to save captured payment",
			zap.String("orderID", order.ID),
			zap.String("paypalOrderID", paypalOrderID),
			zap.Error(err),
		)
		return models.CaptureResult{}, err
	}

	updated := orderFromDB(*updatedDB)

	logger.Log.Info("payment captured", zap.String("orderID", updated.ID), zap.String("paypalOrderID", paypalOrderID))

	ps.publish(updated)
	ps.notify(ctx, paymentResultNotification(updated))

	return models.CaptureResult{Message: messageCaptured, LocalOrder: updated, PayPal: captured}, nil
}

// checkCapturedAmount сверяет списанную сумму с суммой заказа согласно политике.
func (ps *PaymentService) checkCapturedAmount(ctx context.Context, order *database.OrderDB, captured *paypal.Order) error {
	amount, err := captured.CapturedTotal()
	if err != nil {
		return err
	}

	if pricing.Equal(amount, order.TotalAmount) {
		return nil
	}

	logger.Log.Warn("captured amount mismatch",
		zap.String("orderID", order.ID),
		zap.Stringer("captured", amount),
		zap.Stringer("expected", order.TotalAmount),
		zap.String("policy", string(ps.policy)),
	)

	if ps.policy != MismatchReject {
		return nil
	}

	if _, err := ps.failPayment(ctx, order.ID); err != nil {
		return err
	}

	return fmt.Errorf("%w: captured %s, expected %s", ErrAmountMismatch, amount.StringFixed(2), order.TotalAmount.StringFixed(2))
}

func (ps *PaymentService) failPayment(ctx context.Context, orderID string) (models.Order, error) {
	if err := ps.storage.UpdatePayment(ctx, database.PaymentUpdateDB{
		OrderID:       orderID,
		PaymentStatus: database.PaymentStatusDB{PaymentStatus: workflow.PaymentFailed},
		UpdatedAt:     ps.now().UTC(),
	}); err != nil {
		return models.Order{}, err
	}

	order, err := ps.storage.FindOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order == nil {
		return models.Order{}, ErrOrderNotFound
	}

	result := orderFromDB(*order)
	ps.publish(result)
	ps.notify(ctx, paymentResultNotification(result))

	return result, nil
}

// setPayment меняет статус оплаты, ошибка только логируется.
func (ps *PaymentService) setPayment(ctx context.Context, orderID string, status workflow.PaymentStatus) {
	err := ps.storage.UpdatePayment(ctx, database.PaymentUpdateDB{
		OrderID:       orderID,
		PaymentStatus: database.PaymentStatusDB{PaymentStatus: status},
		UpdatedAt:     ps.now().UTC(),
	})
	if err != nil {
		logger.Log.Error("failed to update payment status",
			zap.String("orderID", orderID),
			zap.String("paymentStatus", string(status)),
			zap.Error(err),
		)
	}
}

// priceCart подставляет в позиции корзины название и цену из каталога.
func (ps *PaymentService) priceCart(ctx context.Context, cart []models.CartItem) ([]database.OrderItemDB, error) {
	ids := make([]string, 0, len(cart))
	seen := make(map[string]struct{}, len(cart))
	for _, item := range cart {
		id := strings.TrimSpace(*item.ID)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	products, err := ps.storage.FindProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	catalog := make(map[string]database.ProductDB, len(products))
	for _, product := range products {
		catalog[product.ID] = product
	}

	items := make([]database.OrderItemDB, 0, len(cart))
	for _, item := range cart {
		id := strings.TrimSpace(*item.ID)
		product, ok := catalog[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}

		items = append(items, database.OrderItemDB{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  *item.Quantity,
			LineTotal: pricing.LineTotal(product.Price, *item.Quantity),
		})
	}

	return items, nil
}

func (ps *PaymentService) insertOrder(ctx context.Context, order *database.OrderDB) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := utils.NewOrderNumber(ps.now())
		if err != nil {
			return err
		}
		order.OrderNumber = number

		err = ps.storage.CreateOrder(ctx, *order)
		if !errors.Is(err, database.ErrDuplicateOrder) {
			return err
		}

		logger.Log.Warn("order number collision", zap.String("orderNumber", number))
	}

	return database.ErrDuplicateOrder
}

func (ps *PaymentService) publish(order models.Order) {
	if ps.publisher != nil {
		ps.publisher.Publish(models.StatusEventOf(order))
	}
}

func (ps *PaymentService) notify(ctx context.Context, notification models.Notification) {
	if ps.notifier == nil || notification.Recipient == "" {
		return
	}

	if err := ps.notifier.Enqueue(ctx, notification); err != nil {
		logger.Log.Error("failed to enqueue notification",
			zap.String("kind", string(notification.Kind)),
			zap.Error(err),
		)
	}
}

// ownerOf определяет владельца заказа. userId из тела принимается,
// только если совпадает с пользователем сессии.
func ownerOf(request models.CheckoutRequest, caller *models.User) *string {
	if caller == nil {
		return nil
	}

	if request.UserID != nil && *request.UserID != caller.ID {
		logger.Log.Warn("userId in request doesn't match session user", zap.String("sessionUser", caller.ID))
	}

	id := caller.ID
	return &id
}

func validateCheckout(request models.CheckoutRequest) error {
	if len(request.CartItems) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	for i, item := range request.CartItems {
		if item.ID == nil || strings.TrimSpace(*item.ID) == "" {
			return fmt.Errorf("%w: cartItems[%d].id is required", ErrValidation, i)
		}
		if item.Quantity == nil || *item.Quantity < 1 {
			return fmt.Errorf("%w: cartItems[%d].quantity must be at least 1", ErrValidation, i)
		}
	}

	address := request.ShippingAddress
	if address == nil {
		return fmt.Errorf("%w: shippingAddress is required", ErrValidation)
	}

	required := []struct {
		name  string
		value string
	}{
		{"fullName", address.FullName},
		{"email", address.Email},
		{"line1", address.Line1},
		{"city", address.City},
		{"postalCode", address.PostalCode},
		{"country", address.Country},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: shippingAddress.%s is required", ErrValidation, field.name)
		}
	}

	if !strings.Contains(address.Email, "@") {
		return fmt.Errorf("%w: shippingAddress.email is invalid", ErrValidation)
	}

	return nil
}

func paypalRequestOf(order database.OrderDB) paypal.CreateOrderRequest {
	items := make([]paypal.Item, len(order.Items))
	for i, item := range order.Items {
		items[i] = paypal.Item{
			Name:       item.Name,
			Quantity:   strconv.Itoa(item.Quantity),
			UnitAmount: paypal.NewMoney(item.UnitPrice),
			SKU:        item.ProductID,
		}
	}

	itemTotal := paypal.NewMoney(order.Subtotal)
	shipping := paypal.NewMoney(order.ShippingAmount)
	tax := paypal.NewMoney(order.TaxAmount)
	total := paypal.NewMoney(order.TotalAmount)

	return paypal.CreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			ReferenceID: order.ID,
			InvoiceID:   order.OrderNumber,
			Amount: &paypal.Amount{
				CurrencyCode: total.CurrencyCode,
				Value:        total.Value,
				Breakdown: &paypal.Breakdown{
					ItemTotal: &itemTotal,
					Shipping:  &shipping,
					TaxTotal:  &tax,
				},
			},
			Items: items,
		}},
	}
}
