package services

import (
	"context"
	"sync"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/database"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/paypal"
	"github.com/Renal37/auto-speed-shop/internal/workflow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func money(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// fakeStore хранилище заказов в памяти.
type fakeStore struct {
	mu             sync.Mutex
	orders         map[string]database.OrderDB
	products       map[string]database.ProductDB
	createErrs     []error
	statusUpdates  []database.StatusUpdateDB
	paymentUpdates []database.PaymentUpdateDB
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   map[string]database.OrderDB{},
		products: map[string]database.ProductDB{},
	}
}

func (s *fakeStore) addOrder(status workflow.Status, payment workflow.PaymentStatus, userID *string) database.OrderDB {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := database.OrderDB{
		ID:             uuid.NewString(),
		OrderNumber:    "ORD-TEST-00001",
		UserID:         userID,
		Status:         database.OrderStatusDB{Status: status},
		PaymentStatus:  database.PaymentStatusDB{PaymentStatus: payment},
		Subtotal:       money("100"),
		ShippingAmount: decimal.Zero,
		TaxAmount:      money("8.25"),
		TotalAmount:    money("108.25"),
		PayPalOrderID:  ptr("PP-1"),
		ShippingAddress: models.ShippingAddress{
			FullName:   "Jane Doe",
			Email:      "jane@example.com",
			Line1:      "1 Main St",
			City:       "Austin",
			PostalCode: "73301",
			Country:    "US",
		},
		CreatedAt: testNow.Add(-72 * time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
		Items: []database.OrderItemDB{
			{ProductID: "p-1", Name: "Brake pads", UnitPrice: money("50"), Quantity: 2, LineTotal: money("100")},
		},
	}
	s.orders[order.ID] = order

	return order
}

// unbindPayPal убирает у заказа сохранённый заказ PayPal.
func (s *fakeStore) unbindPayPal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.orders[id]
	order.PayPalOrderID = nil
	s.orders[id] = order
}

func (s *fakeStore) FindOrder(_ context.Context, orderID string) (*database.OrderDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (s *fakeStore) FindOrdersByUser(_ context.Context, userID string) ([]database.OrderDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []database.OrderDB
	for _, order := range s.orders {
		if order.UserID != nil && *order.UserID == userID {
			result = append(result, order)
		}
	}
	return result, nil
}

func (s *fakeStore) UpdateOrderStatus(_ context.Context, update database.StatusUpdateDB) (*database.OrderDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statusUpdates = append(s.statusUpdates, update)

	order, ok := s.orders[update.OrderID]
	if !ok {
		return nil, nil
	}

	order.Status = update.Status
	if update.PaymentStatus != nil {
		order.PaymentStatus = *update.PaymentStatus
	}
	if update.ShippedAt != nil {
		order.ShippedAt = update.ShippedAt
	}
	if update.DeliveredAt != nil {
		order.DeliveredAt = update.DeliveredAt
	}
	if update.Notes != nil {
		order.Notes = update.Notes
	}
	order.UpdatedAt = update.UpdatedAt
	s.orders[order.ID] = order

	return &order, nil
}

func (s *fakeStore) FindProducts(_ context.Context, ids []string) ([]database.ProductDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []database.ProductDB
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

func (s *fakeStore) CreateOrder(_ context.Context, order database.OrderDB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}

	s.orders[order.ID] = order
	return nil
}

func (s *fakeStore) UpdatePayment(_ context.Context, update database.PaymentUpdateDB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paymentUpdates = append(s.paymentUpdates, update)

	order, ok := s.orders[update.OrderID]
	if !ok {
		return nil
	}

	order.PaymentStatus = update.PaymentStatus
	if update.PayPalOrderID != nil {
		order.PayPalOrderID = update.PayPalOrderID
	}
	order.UpdatedAt = update.UpdatedAt
	s.orders[order.ID] = order

	return nil
}

func (s *fakeStore) order(id string) database.OrderDB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (n *fakeNotifier) Enqueue(_ context.Context, notification models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

type fakePublisher struct {
	events []models.OrderStatusEvent
}

func (p *fakePublisher) Publish(event models.OrderStatusEvent) {
	p.events = append(p.events, event)
}

type fakeGateway struct {
	createErr     error
	createdWith   *paypal.CreateOrderRequest
	captureResult *paypal.Order
	captureErr    error
	captureCalls  int
}

func (g *fakeGateway) CreateOrder(_ context.Context, request paypal.CreateOrderRequest) (*paypal.Order, error) {
	g.createdWith = &request
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &paypal.Order{ID: "PP-1", Status: "CREATED"}, nil
}

func (g *fakeGateway) CaptureOrder(_ context.Context, _ string) (*paypal.Order, error) {
	g.captureCalls++
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	return g.captureResult, nil
}

func completedCapture(amount string) *paypal.Order {
	return &paypal.Order{
		ID:     "PP-1",
		Status: paypal.StatusCompleted,
		PurchaseUnits: []paypal.PurchaseUnit{{
			Payments: &paypal.Payments{Captures: []paypal.Capture{{
				ID:     "CAP-1",
				Status: paypal.StatusCompleted,
				Amount: paypal.NewMoney(money(amount)),
			}}},
		}},
	}
}

func ptr[T any](v T) *T {
	return &v
}
