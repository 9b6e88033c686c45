package services

import "errors"

// Ошибки бизнес-логики. Обработчики HTTP сопоставляют их с кодами ответа.
var (
	ErrValidation           = errors.New("validation failed")
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrTransitionNotAllowed = errors.New("status transition is not allowed")
	ErrOrderClosed          = errors.New("order is closed")
	ErrAmountMismatch       = errors.New("captured amount doesn't match order total")
)
