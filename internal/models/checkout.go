package models

import "github.com/Renal37/auto-speed-shop/internal/paypal"

// CartItem позиция корзины от клиента: только идентификатор и количество.
// Цена и название всегда берутся из каталога.
type CartItem struct {
	ID       *string `json:"id"`
	Quantity *int    `json:"quantity"`
}

type CheckoutRequest struct {
	CartItems       []CartItem       `json:"cartItems"`
	ShippingAddress *ShippingAddress `json:"shippingAddress"`
	UserID          *string          `json:"userId,omitempty"`
}

type CheckoutResult struct {
	PayPalOrderID string `json:"paypalOrderId"`
	LocalOrderID  string `json:"localOrderId"`
	OrderNumber   string `json:"orderNumber"`
}

type CaptureRequest struct {
	PayPalOrderID *string `json:"paypalOrderId"`
	LocalOrderID  *string `json:"localOrderId"`
}

type CaptureResult struct {
	Message    string        `json:"message"`
	LocalOrder Order         `json:"localOrder"`
	PayPal     *paypal.Order `json:"paypal"`
}
