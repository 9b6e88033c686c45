package router

import (
	"net/http"

	"github.com/Renal37/auto-speed-shop/internal/middlewares"
	"github.com/Renal37/auto-speed-shop/internal/models"
)

// CreatePayPalOrder оформляет заказ из корзины и создаёт заказ PayPal.
func CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	data, ok := middlewares.GetParsedJSONData[models.CheckoutRequest](w, r)
	if !ok {
		return
	}

	paymentService := middlewares.GetServiceFromContext[models.PaymentService](w, r, middlewares.PaymentServiceKey)
	if paymentService == nil {
		return
	}

	result, err := (*paymentService).CreateOrder(r.Context(), data, middlewares.LookupUser(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	middlewares.EncodeJSONResponse(w, result)
}

// CapturePayPalOrder списывает оплату по одобренному заказу PayPal.
func CapturePayPalOrder(w http.ResponseWriter, r *http.Request) {
	data, ok := middlewares.GetParsedJSONData[models.CaptureRequest](w, r)
	if !ok {
		return
	}

	paymentService := middlewares.GetServiceFromContext[models.PaymentService](w, r, middlewares.PaymentServiceKey)
	if paymentService == nil {
		return
	}

	result, err := (*paymentService).CaptureOrder(r.Context(), data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	middlewares.EncodeJSONResponse(w, result)
}
