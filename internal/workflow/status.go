package workflow

import (
	"errors"
	"fmt"
)

// Status статус заказа. Допустимы только значения из закрытого перечня ниже.
type Status string

const (
	StatusPendingAdminReview Status = "pending_admin_review"
	StatusInvoiceSent        Status = "invoice_sent"
	StatusInvoiceAccepted    Status = "invoice_accepted"
	StatusInvoiceDeclined    Status = "invoice_declined"
	StatusPaymentPending     Status = "payment_pending"
	StatusPayPalShared       Status = "paypal_shared"
	StatusPaymentSubmitted   Status = "payment_submitted"
	StatusPaymentVerified    Status = "payment_verified"
	StatusConfirmed          Status = "confirmed"
	StatusShipped            Status = "shipped"
	StatusDelivered          Status = "delivered"
	StatusCancelled          Status = "cancelled"
)

// PaymentStatus статус оплаты, производный от статуса заказа.
type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "initiated"
	PaymentPending   PaymentStatus = "pending"
	PaymentSubmitted PaymentStatus = "submitted"
	PaymentVerified  PaymentStatus = "verified"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

var (
	ErrUnknownStatus        = errors.New("unknown order status")
	ErrUnknownPaymentStatus = errors.New("unknown payment status")
)

var statuses = map[Status]struct{}{
	StatusPendingAdminReview: {},
	StatusInvoiceSent:        {},
	StatusInvoiceAccepted:    {},
	StatusInvoiceDeclined:    {},
	StatusPaymentPending:     {},
	StatusPayPalShared:       {},
	StatusPaymentSubmitted:   {},
	StatusPaymentVerified:    {},
	StatusConfirmed:          {},
	StatusShipped:            {},
	StatusDelivered:          {},
	StatusCancelled:          {},
}

var paymentStatuses = map[PaymentStatus]struct{}{
	PaymentInitiated: {},
	PaymentPending:   {},
	PaymentSubmitted: {},
	PaymentVerified:  {},
	PaymentCompleted: {},
	PaymentFailed:    {},
}

// ParseStatus проверяет, что строка входит в перечень статусов заказа.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if _, ok := statuses[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
	return s, nil
}

// ParsePaymentStatus проверяет, что строка входит в перечень статусов оплаты.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	s := PaymentStatus(value)
	if _, ok := paymentStatuses[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, value)
	}
	return s, nil
}

func (s Status) Valid() bool {
	_, ok := statuses[s]
	return ok
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatuses[s]
	return ok
}

// Closed сообщает, что заказ отменён или по нему отклонён счёт.
func (s Status) Closed() bool {
	return s == StatusCancelled || s == StatusInvoiceDeclined
}

// PaymentStatusFor возвращает статус оплаты, который принудительно выставляется
// при переходе заказа в статус s. Второе значение false, если статус оплаты не меняется.
func PaymentStatusFor(s Status) (PaymentStatus, bool) {
	switch s {
	case StatusPaymentVerified:
		return PaymentVerified, true
	case StatusConfirmed:
		return PaymentCompleted, true
	case StatusCancelled, StatusInvoiceDeclined:
		return PaymentFailed, true
	default:
		return "", false
	}
}

// Description человекочитаемое описание статуса для истории заказа.
func (s Status) Description() string {
	switch s {
	case StatusPendingAdminReview:
		return "Order placed and awaiting review"
	case StatusInvoiceSent:
		return "Invoice sent to customer"
	case StatusInvoiceAccepted:
		return "Invoice accepted by customer"
	case StatusInvoiceDeclined:
		return "Invoice declined by customer"
	case StatusPaymentPending:
		return "Awaiting payment"
	case StatusPayPalShared:
		return "PayPal payment details shared"
	case StatusPaymentSubmitted:
		return "Payment submitted by customer"
	case StatusPaymentVerified:
		return "Payment verified"
	case StatusConfirmed:
		return "Order confirmed"
	case StatusShipped:
		return "Order shipped"
	case StatusDelivered:
		return "Order delivered"
	case StatusCancelled:
		return "Order cancelled"
	default:
		return string(s)
	}
}
