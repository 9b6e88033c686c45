package middlewares

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Renal37/auto-speed-shop/internal/models"
)

type key int

const (
	AuthServiceKey key = iota
	JwtServiceKey
	OrderServiceKey
	PaymentServiceKey
)

func ServiceInjectorMiddleware(
	authService models.AuthService,
	jwtService models.JWTService,
	orderService models.OrderService,
	paymentService models.PaymentService,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), AuthServiceKey, authService)
			ctx = context.WithValue(ctx, JwtServiceKey, jwtService)
			ctx = context.WithValue(ctx, OrderServiceKey, orderService)
			ctx = context.WithValue(ctx, PaymentServiceKey, paymentService)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetServiceFromContext возвращает сервис по ключу. Если сервиса нет, отвечает 500 и возвращает nil.
func GetServiceFromContext[Service interface{}](w http.ResponseWriter, r *http.Request, serviceKey key) *Service {
	foundService, ok := r.Context().Value(serviceKey).(Service)

	if !ok {
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("service wasn't found in context by key %v", serviceKey))
		return nil
	}

	return &foundService
}
