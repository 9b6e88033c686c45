package models

import (
	"github.com/Renal37/auto-speed-shop/internal/pricing"
	"github.com/Renal37/auto-speed-shop/internal/utils"
	"github.com/Renal37/auto-speed-shop/internal/workflow"
	"github.com/shopspring/decimal"
)

func init() {
	// Денежные суммы в JSON передаются числами.
	decimal.MarshalJSONWithoutQuotes = true
}

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderItem снимок товара на момент покупки. После создания не меняется.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Order struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	UserID          *string                `json:"user_id,omitempty"`
	Status          workflow.Status        `json:"status"`
	PaymentStatus   workflow.PaymentStatus `json:"payment_status"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	ShippingAmount  decimal.Decimal        `json:"shipping_amount"`
	TaxAmount       decimal.Decimal        `json:"tax_amount"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	PayPalOrderID   *string                `json:"paypal_order_id,omitempty"`
	ShippingAddress ShippingAddress        `json:"shipping_address"`
	Notes           *string                `json:"notes,omitempty"`
	Items           []OrderItem            `json:"items"`
	CreatedAt       utils.RFC3339Date      `json:"created_at"`
	UpdatedAt       utils.RFC3339Date      `json:"updated_at"`
	ShippedAt       *utils.RFC3339Date     `json:"shipped_at,omitempty"`
	DeliveredAt     *utils.RFC3339Date     `json:"delivered_at,omitempty"`
}

// Pricing возвращает денежные поля заказа.
func (o Order) Pricing() pricing.Pricing {
	return pricing.Pricing{
		Subtotal: o.Subtotal,
		Shipping: o.ShippingAmount,
		Tax:      o.TaxAmount,
		Total:    o.TotalAmount,
	}
}

// OwnedBy сообщает, принадлежит ли заказ пользователю.
func (o Order) OwnedBy(userID string) bool {
	return o.UserID != nil && *o.UserID == userID
}

type StatusHistoryEntry struct {
	Status      workflow.Status   `json:"status"`
	Timestamp   utils.RFC3339Date `json:"timestamp"`
	Description string            `json:"description"`
	Estimated   bool              `json:"estimated"`
}

// OrderStatusView ответ на запрос статуса заказа.
type OrderStatusView struct {
	CurrentStatus workflow.Status        `json:"currentStatus"`
	PaymentStatus workflow.PaymentStatus `json:"paymentStatus"`
	StatusHistory []StatusHistoryEntry   `json:"statusHistory"`
	Order         Order                  `json:"order"`
}

// StatusUpdate запрос администратора на смену статуса.
type StatusUpdate struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

type AllowedTransitions struct {
	Status  workflow.Status   `json:"status"`
	Allowed []workflow.Status `json:"allowed"`
}

// OrderStatusEvent рассылается подписчикам при каждом изменении статуса.
type OrderStatusEvent struct {
	OrderID       string                 `json:"orderId"`
	Status        workflow.Status        `json:"status"`
	PaymentStatus workflow.PaymentStatus `json:"paymentStatus"`
	UpdatedAt     utils.RFC3339Date      `json:"updatedAt"`
}

// StatusEventOf формирует событие из заказа.
func StatusEventOf(o Order) OrderStatusEvent {
	return OrderStatusEvent{
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		UpdatedAt:     o.UpdatedAt,
	}
}
