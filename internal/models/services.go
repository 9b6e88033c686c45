package models

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

//go:generate mockgen -destination=mocks/mock_auth.go . AuthService
type AuthService interface {
	Register(ctx context.Context, user UnknownUser) error

	Login(ctx context.Context, user UnknownUser) error

	GetUser(ctx context.Context, login string) (*User, error)
}

//go:generate mockgen -destination=mocks/mock_jwt.go . JWTService
type JWTService interface {
	GenerateJWT(subject string) (string, error)

	ValidateToken(token string) (*jwt.Token, error)
}

//go:generate mockgen -destination=mocks/mock_order.go . OrderService
type OrderService interface {
	GetOrderStatus(ctx context.Context, orderID string, caller *User) (OrderStatusView, error)

	GetOrders(ctx context.Context, userID string) ([]Order, error)

	UpdateOrderStatus(ctx context.Context, orderID string, update StatusUpdate, caller *User) (*Order, error)

	AllowedTransitions(status string) (AllowedTransitions, error)
}

//go:generate mockgen -destination=mocks/mock_payment.go . PaymentService
type PaymentService interface {
	CreateOrder(ctx context.Context, request CheckoutRequest, caller *User) (CheckoutResult, error)

	CaptureOrder(ctx context.Context, request CaptureRequest) (CaptureResult, error)
}
