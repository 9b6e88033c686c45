package workflow

// Progression канонический порядок статусов, по которому строится история заказа.
var Progression = []Status{
	StatusPendingAdminReview,
	StatusInvoiceSent,
	StatusInvoiceAccepted,
	StatusPaymentPending,
	StatusPayPalShared,
	StatusPaymentSubmitted,
	StatusPaymentVerified,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
}

// transitions единственная таблица допустимых переходов. Её используют и сервер,
// и клиентские списки статусов через AllowedTransitions.
var transitions = map[Status][]Status{
	StatusPendingAdminReview: {StatusInvoiceSent, StatusCancelled},
	StatusInvoiceSent:        {StatusInvoiceAccepted, StatusInvoiceDeclined, StatusCancelled},
	StatusInvoiceAccepted:    {StatusPayPalShared, StatusCancelled},
	StatusInvoiceDeclined:    {StatusCancelled},
	StatusPayPalShared:       {StatusPaymentPending, StatusCancelled},
	StatusPaymentPending:     {StatusPaymentSubmitted, StatusCancelled},
	StatusPaymentSubmitted:   {StatusPaymentVerified, StatusCancelled},
	StatusPaymentVerified:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:          {StatusShipped, StatusCancelled},
	StatusShipped:            {StatusDelivered, StatusCancelled},
	StatusDelivered:          {},
	StatusCancelled:          {},
}

// ValidateTransition проверяет, разрешён ли переход из current в next.
func ValidateTransition(current, next Status) bool {
	for _, allowed := range transitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedTransitions возвращает копию списка статусов, в которые можно перейти из current.
func AllowedTransitions(current Status) []Status {
	allowed := transitions[current]
	result := make([]Status, len(allowed))
	copy(result, allowed)
	return result
}

// Terminal сообщает, что из статуса нет переходов.
func Terminal(s Status) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// progressionIndex возвращает позицию статуса в каноническом порядке или -1.
func progressionIndex(s Status) int {
	for i, step := range Progression {
		if step == s {
			return i
		}
	}
	return -1
}
