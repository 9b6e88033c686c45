package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/models"
)

const (
	InsertNotificationQuery = `
		INSERT INTO
			notification_queue (kind, recipient, subject, body)
		VALUES ($1, $2, $3, $4)
	`
	// ClaimNotificationsQuery забирает пачку ожидающих писем и помечает их processing.
	// Письма, зависшие в processing дольше $3 секунд, забираются повторно.
	// SKIP LOCKED позволяет нескольким экземплярам сервиса разбирать очередь параллельно.
	ClaimNotificationsQuery = `
		WITH claimed AS (
			SELECT
				id
			FROM
				notification_queue
			WHERE
				(
					status = 'pending'
					OR (status = 'processing' AND updated_at < NOW() - make_interval(secs => $3))
				)
				AND attempts < $2
			ORDER BY
				id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE
			notification_queue n
		SET
			status = 'processing',
			updated_at = NOW()
		FROM
			claimed
		WHERE
			n.id = claimed.id
		RETURNING
			n.id, n.kind, n.recipient, n.subject, n.body, n.attempts
	`
	CompleteNotificationQuery = `
		UPDATE
			notification_queue
		SET
			status = 'completed',
			updated_at = NOW()
		WHERE
			id = $1
	`
	ReleaseNotificationQuery = `
		UPDATE
			notification_queue
		SET
			status = 'pending',
			updated_at = NOW()
		WHERE
			id = $1
	`
	FailNotificationQuery = `
		UPDATE
			notification_queue
		SET
			attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			updated_at = NOW()
		WHERE
			id = $1
	`
)

func (d *Database) EnqueueNotification(ctx context.Context, notification models.Notification) error {
	_, err := d.db.Exec(ctx, InsertNotificationQuery,
		string(notification.Kind), notification.Recipient, notification.Subject, notification.Body)
	if err != nil {
		return fmt.Errorf("ошибка постановки письма в очередь: %w", err)
	}
	return nil
}

// ClaimPendingNotifications возвращает до limit писем, у которых осталось меньше maxAttempts попыток.
// Письма в processing старше lease считаются брошенными и тоже возвращаются.
func (d *Database) ClaimPendingNotifications(ctx context.Context, limit, maxAttempts int, lease time.Duration) ([]models.Notification, error) {
	rows, err := d.db.Query(ctx, ClaimNotificationsQuery, limit, maxAttempts, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки писем из очереди: %w", err)
	}
	defer rows.Close()

	var result []models.Notification
	for rows.Next() {
		var n models.Notification
		var kind string
		if err := rows.Scan(&n.ID, &kind, &n.Recipient, &n.Subject, &n.Body, &n.Attempts); err != nil {
			return nil, fmt.Errorf("ошибка обработки строки очереди: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по строкам: %w", err)
	}

	return result, nil
}

func (d *Database) MarkNotificationCompleted(ctx context.Context, id int64) error {
	if _, err := d.db.Exec(ctx, CompleteNotificationQuery, id); err != nil {
		return fmt.Errorf("ошибка завершения письма %d: %w", id, err)
	}
	return nil
}

// ReleaseNotification возвращает письмо в очередь, не расходуя попытку.
func (d *Database) ReleaseNotification(ctx context.Context, id int64) error {
	if _, err := d.db.Exec(ctx, ReleaseNotificationQuery, id); err != nil {
		return fmt.Errorf("ошибка возврата письма %d в очередь: %w", id, err)
	}
	return nil
}

// MarkNotificationFailed увеличивает счётчик попыток. После maxAttempts письмо остаётся в статусе failed.
func (d *Database) MarkNotificationFailed(ctx context.Context, id int64, reason string, maxAttempts int) error {
	if _, err := d.db.Exec(ctx, FailNotificationQuery, id, reason, maxAttempts); err != nil {
		return fmt.Errorf("ошибка отметки письма %d: %w", id, err)
	}
	return nil
}
