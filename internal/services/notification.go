package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/email"
	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/workflow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// NotificationMaxAttempts после стольких неудачных отправок письмо остаётся в статусе failed.
	NotificationMaxAttempts = 3

	// NotificationLease через столько письмо в статусе processing снова считается ожидающим.
	NotificationLease = 5 * time.Minute

	defaultNotificationBatch = 20
	sendConcurrency          = 4
)

// NotificationService очередь писем покупателям. Письма сохраняются в БД
// и рассылаются периодическим заданием пула воркеров.
type NotificationService struct {
	storage   notificationStorage
	sender    emailSender
	jobQueue  notificationJobQueue
	batchSize int
}

type notificationStorage interface {
	EnqueueNotification(ctx context.Context, notification models.Notification) error
	ClaimPendingNotifications(ctx context.Context, limit, maxAttempts int, lease time.Duration) ([]models.Notification, error)
	MarkNotificationCompleted(ctx context.Context, id int64) error
	MarkNotificationFailed(ctx context.Context, id int64, reason string, maxAttempts int) error
	ReleaseNotification(ctx context.Context, id int64) error
}

type emailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type notificationJobQueue interface {
	Every(ctx context.Context, interval time.Duration, job Job)
	ScheduleJob(job Job, delay time.Duration)
	PauseAndResume(delay time.Duration)
}

func NewNotificationService(storage notificationStorage, sender emailSender, jobQueue notificationJobQueue, batchSize int) *NotificationService {
	if batchSize <= 0 {
		batchSize = defaultNotificationBatch
	}

	return &NotificationService{
		storage:   storage,
		sender:    sender,
		jobQueue:  jobQueue,
		batchSize: batchSize,
	}
}

// Enqueue сохраняет письмо в очередь.
func (ns *NotificationService) Enqueue(ctx context.Context, notification models.Notification) error {
	if notification.Recipient == "" {
		return fmt.Errorf("%w: recipient is empty", ErrValidation)
	}

	if err := ns.storage.EnqueueNotification(ctx, notification); err != nil {
		return err
	}

	logger.Log.Debug("notification enqueued",
		zap.String("kind", string(notification.Kind)),
		zap.String("recipient", notification.Recipient),
	)

	return nil
}

// StartDispatching запускает периодическую рассылку очереди.
func (ns *NotificationService) StartDispatching(ctx context.Context, interval time.Duration) {
	ns.jobQueue.Every(ctx, interval, ns.dispatchJob)
}

func (ns *NotificationService) dispatchJob(ctx context.Context) {
	if err := ns.DispatchPending(ctx); err != nil {
		logger.Log.Error("failed to dispatch notifications", zap.Error(err))
	}
}

// DispatchPending отправляет одну пачку писем. Ошибка отправки письма не прерывает
// остальные: письмо возвращается в очередь до исчерпания попыток.
// Письма, не отправленные из-за остановки сервиса или лимита провайдера,
// возвращаются в очередь без расхода попытки.
func (ns *NotificationService) DispatchPending(ctx context.Context) error {
	notifications, err := ns.storage.ClaimPendingNotifications(ctx, ns.batchSize, NotificationMaxAttempts, NotificationLease)
	if err != nil {
		return err
	}

	if len(notifications) == 0 {
		return nil
	}

	// Результат отправки сохраняется и после отмены ctx.
	markCtx := context.WithoutCancel(ctx)

	var pauseOnce sync.Once
	g := errgroup.Group{}
	g.SetLimit(sendConcurrency)

	for _, notification := range notifications {
		notification := notification

		g.Go(func() error {
			if ctx.Err() != nil {
				return ns.storage.ReleaseNotification(markCtx, notification.ID)
			}

			sendErr := ns.sender.Send(ctx, notification.Recipient, notification.Subject, notification.Body)
			if sendErr == nil {
				return ns.storage.MarkNotificationCompleted(markCtx, notification.ID)
			}

			if ctx.Err() != nil {
				return ns.storage.ReleaseNotification(markCtx, notification.ID)
			}

			var rateLimitErr *email.RateLimitError
			if errors.As(sendErr, &rateLimitErr) {
				pauseOnce.Do(func() {
					logger.Log.Info("email provider rate limit", zap.Duration("retryAfter", rateLimitErr.RetryAfter))
					ns.jobQueue.PauseAndResume(rateLimitErr.RetryAfter)
					ns.jobQueue.ScheduleJob(ns.dispatchJob, rateLimitErr.RetryAfter)
				})
				return ns.storage.ReleaseNotification(markCtx, notification.ID)
			}

			logger.Log.Warn("failed to send notification",
				zap.Int64("id", notification.ID),
				zap.Int("attempt", notification.Attempts+1),
				zap.Error(sendErr),
			)

			return ns.storage.MarkNotificationFailed(markCtx, notification.ID, sendErr.Error(), NotificationMaxAttempts)
		})
	}

	return g.Wait()
}

func orderPlacedNotification(order models.Order) models.Notification {
	return models.Notification{
		Kind:      models.NotificationOrderPlaced,
		Recipient: order.ShippingAddress.Email,
		Subject:   fmt.Sprintf("Order %s received", order.OrderNumber),
		Body: fmt.Sprintf(
			"<p>Hi %s,</p><p>We received your order <b>%s</b>. Total: $%s.</p><p>We will email you once it is reviewed.</p>",
			html.EscapeString(order.ShippingAddress.FullName),
			html.EscapeString(order.OrderNumber),
			order.TotalAmount.StringFixed(2),
		),
	}
}

func statusChangedNotification(order models.Order) models.Notification {
	return models.Notification{
		Kind:      models.NotificationStatusChanged,
		Recipient: order.ShippingAddress.Email,
		Subject:   fmt.Sprintf("Order %s: %s", order.OrderNumber, order.Status.Description()),
		Body: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your order <b>%s</b> has a new status: %s.</p>",
			html.EscapeString(order.ShippingAddress.FullName),
			html.EscapeString(order.OrderNumber),
			html.EscapeString(order.Status.Description()),
		),
	}
}

func paymentResultNotification(order models.Order) models.Notification {
	result := "was not completed"
	if order.PaymentStatus == workflow.PaymentCompleted {
		result = "was received"
	}

	return models.Notification{
		Kind:      models.NotificationPaymentResult,
		Recipient: order.ShippingAddress.Email,
		Subject:   fmt.Sprintf("Payment for order %s %s", order.OrderNumber, result),
		Body: fmt.Sprintf(
			"<p>Hi %s,</p><p>Payment of $%s for order <b>%s</b> %s.</p>",
			html.EscapeString(order.ShippingAddress.FullName),
			order.TotalAmount.StringFixed(2),
			html.EscapeString(order.OrderNumber),
			result,
		),
	}
}
