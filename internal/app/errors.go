package router

import (
	"errors"
	"net/http"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/middlewares"
	"github.com/Renal37/auto-speed-shop/internal/paypal"
	"github.com/Renal37/auto-speed-shop/internal/services"
	"go.uber.org/zap"
)

// writeServiceError сопоставляет ошибку сервиса с кодом ответа.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *paypal.APIError

	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidStatus):
		middlewares.WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPermissionDenied):
		if middlewares.LookupUser(r) == nil {
			middlewares.WriteJSONError(w, http.StatusUnauthorized, "authentication is required")
			return
		}
		middlewares.WriteJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, services.ErrProductNotFound):
		middlewares.WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrTransitionNotAllowed),
		errors.Is(err, services.ErrOrderClosed),
		errors.Is(err, services.ErrAmountMismatch):
		middlewares.WriteJSONError(w, http.StatusConflict, err.Error())
	case errors.As(err, &apiErr):
		logger.Log.Error("paypal request failed", zap.Int("status", apiErr.StatusCode), zap.String("uri", r.RequestURI))
		middlewares.WriteJSONErrorWithDetails(w, http.StatusInternalServerError, "PayPal request failed", apiErr.Body)
	default:
		logger.Log.Error("request failed", zap.String("uri", r.RequestURI), zap.Error(err))
		middlewares.WriteJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
