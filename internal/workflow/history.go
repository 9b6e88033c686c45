package workflow

import (
	"sort"
	"time"
)

// Timeline набор известных меток времени заказа, по которым восстанавливается история.
type Timeline struct {
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// HistoryEntry запись истории заказа. Estimated выставлен для шагов,
// реальное время которых неизвестно.
type HistoryEntry struct {
	Status      Status
	Timestamp   time.Time
	Description string
	Estimated   bool
}

const estimatedStep = 24 * time.Hour

// DeriveHistory восстанавливает историю заказа для отображения покупателю.
// История не хранится и не является журналом аудита: для пропущенных шагов
// время оценивается как created_at + i дней.
func DeriveHistory(t Timeline) []HistoryEntry {
	last := progressionIndex(t.Status)

	switch t.Status {
	case StatusCancelled:
		last = progressionIndex(StatusPendingAdminReview)
	case StatusInvoiceDeclined:
		last = progressionIndex(StatusInvoiceSent)
	}

	if last < 0 {
		return nil
	}

	history := make([]HistoryEntry, 0, last+2)
	for i := 0; i <= last; i++ {
		step := Progression[i]
		entry := HistoryEntry{
			Status:      step,
			Timestamp:   t.CreatedAt.Add(time.Duration(i) * estimatedStep),
			Description: step.Description(),
			Estimated:   i > 0,
		}

		// Закрытый заказ не мог пройти шаг позже своего закрытия.
		if t.Status.Closed() && entry.Estimated && entry.Timestamp.After(t.UpdatedAt) {
			entry.Timestamp = t.UpdatedAt
		}

		switch {
		case step == StatusShipped && t.ShippedAt != nil:
			entry.Timestamp = *t.ShippedAt
			entry.Estimated = false
		case step == StatusDelivered && t.DeliveredAt != nil:
			entry.Timestamp = *t.DeliveredAt
			entry.Estimated = false
		}

		history = append(history, entry)
	}

	if t.Status.Closed() {
		history = append(history, HistoryEntry{
			Status:      t.Status,
			Timestamp:   t.UpdatedAt,
			Description: t.Status.Description(),
		})
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})

	return history
}
