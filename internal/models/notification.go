package models

type NotificationKind string

const (
	NotificationOrderPlaced   NotificationKind = "order_placed"
	NotificationStatusChanged NotificationKind = "status_changed"
	NotificationPaymentResult NotificationKind = "payment_result"
)

// Notification письмо, ожидающее отправки через очередь уведомлений.
type Notification struct {
	ID        int64
	Kind      NotificationKind
	Recipient string
	Subject   string
	Body      string
	Attempts  int
}
