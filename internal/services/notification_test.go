package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/email"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leasedNotification struct {
	notification models.Notification
	claimedAt    time.Time
}

type fakeNotificationStore struct {
	mu         sync.Mutex
	queued     []models.Notification
	pending    []models.Notification
	processing []leasedNotification
	completed  []int64
	released   []int64
	failed     map[int64]string
	leases     []time.Duration
}

func (s *fakeNotificationStore) EnqueueNotification(_ context.Context, notification models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, notification)
	return nil
}

func (s *fakeNotificationStore) ClaimPendingNotifications(_ context.Context, limit, _ int, lease time.Duration) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leases = append(s.leases, lease)

	var stale []models.Notification
	active := s.processing[:0]
	for _, leased := range s.processing {
		if time.Since(leased.claimedAt) > lease {
			stale = append(stale, leased.notification)
			continue
		}
		active = append(active, leased)
	}
	s.processing = active
	s.pending = append(stale, s.pending...)

	if limit > len(s.pending) {
		limit = len(s.pending)
	}
	claimed := append([]models.Notification(nil), s.pending[:limit]...)
	s.pending = s.pending[limit:]
	for _, notification := range claimed {
		s.processing = append(s.processing, leasedNotification{notification: notification, claimedAt: time.Now()})
	}
	return claimed, nil
}

func (s *fakeNotificationStore) finish(id int64) (models.Notification, bool) {
	for i, leased := range s.processing {
		if leased.notification.ID == id {
			s.processing = append(s.processing[:i], s.processing[i+1:]...)
			return leased.notification, true
		}
	}
	return models.Notification{}, false
}

func (s *fakeNotificationStore) MarkNotificationCompleted(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(id)
	s.completed = append(s.completed, id)
	return nil
}

func (s *fakeNotificationStore) MarkNotificationFailed(ctx context.Context, id int64, reason string, maxAttempts int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(id)
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = reason
	return nil
}

func (s *fakeNotificationStore) ReleaseNotification(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if notification, ok := s.finish(id); ok {
		s.pending = append(s.pending, notification)
	}
	s.released = append(s.released, id)
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	errs map[string]error
}

func (s *fakeSender) Send(_ context.Context, to, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.errs[to]; ok {
		return err
	}
	s.sent = append(s.sent, to)
	return nil
}

// blockingSender ждёт отмены контекста и возвращает её ошибку.
type blockingSender struct {
	started chan struct{}
	once    sync.Once
}

func (s *blockingSender) Send(ctx context.Context, _, _, _ string) error {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return ctx.Err()
}

type fakeNotificationQueue struct {
	mu        sync.Mutex
	pauses    []time.Duration
	scheduled []time.Duration
}

func (q *fakeNotificationQueue) Every(_ context.Context, _ time.Duration, _ Job) {}

func (q *fakeNotificationQueue) ScheduleJob(_ Job, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.scheduled = append(q.scheduled, delay)
}

func (q *fakeNotificationQueue) PauseAndResume(delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pauses = append(q.pauses, delay)
}

func TestNotificationEnqueue(t *testing.T) {
	store := &fakeNotificationStore{}
	service := NewNotificationService(store, &fakeSender{}, &fakeNotificationQueue{}, 0)

	err := service.Enqueue(context.Background(), models.Notification{Kind: models.NotificationOrderPlaced})
	assert.ErrorIs(t, err, ErrValidation)

	err = service.Enqueue(context.Background(), models.Notification{
		Kind:      models.NotificationOrderPlaced,
		Recipient: "jane@example.com",
	})
	require.NoError(t, err)
	assert.Len(t, store.queued, 1)
}

func TestDispatchPending(t *testing.T) {
	store := &fakeNotificationStore{pending: []models.Notification{
		{ID: 1, Recipient: "ok@example.com"},
		{ID: 2, Recipient: "broken@example.com", Attempts: 2},
		{ID: 3, Recipient: "limited@example.com"},
	}}
	sender := &fakeSender{errs: map[string]error{
		"broken@example.com":  errors.New("mailbox unavailable"),
		"limited@example.com": &email.RateLimitError{RetryAfter: 30 * time.Second},
	}}
	queue := &fakeNotificationQueue{}

	service := NewNotificationService(store, sender, queue, 10)

	require.NoError(t, service.DispatchPending(context.Background()))

	assert.Equal(t, []string{"ok@example.com"}, sender.sent)
	assert.Equal(t, []int64{1}, store.completed)
	assert.Len(t, store.failed, 1)
	assert.Contains(t, store.failed[2], "mailbox unavailable")
	assert.Equal(t, []time.Duration{NotificationLease}, store.leases)

	// Письмо, упёршееся в лимит провайдера, возвращается в очередь без расхода попытки,
	// а повторная рассылка планируется на момент снятия лимита.
	assert.Equal(t, []int64{3}, store.released)
	require.Len(t, store.pending, 1)
	assert.Equal(t, 0, store.pending[0].Attempts)
	assert.Equal(t, []time.Duration{30 * time.Second}, queue.pauses)
	assert.Equal(t, []time.Duration{30 * time.Second}, queue.scheduled)
	assert.Empty(t, store.processing)
}

func TestDispatchPendingReleasesOnShutdown(t *testing.T) {
	store := &fakeNotificationStore{pending: []models.Notification{
		{ID: 1, Recipient: "first@example.com"},
		{ID: 2, Recipient: "second@example.com"},
	}}
	sender := &blockingSender{started: make(chan struct{})}
	service := NewNotificationService(store, sender, &fakeNotificationQueue{}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.DispatchPending(ctx) }()

	<-sender.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatch didn't stop after cancel")
	}

	assert.Empty(t, store.completed)
	assert.Empty(t, store.failed)
	assert.ElementsMatch(t, []int64{1, 2}, store.released)
	assert.Len(t, store.pending, 2)
	assert.Empty(t, store.processing)
}

func TestDispatchPendingReclaimsExpiredLease(t *testing.T) {
	store := &fakeNotificationStore{processing: []leasedNotification{
		{
			notification: models.Notification{ID: 7, Recipient: "stale@example.com"},
			claimedAt:    time.Now().Add(-NotificationLease - time.Minute),
		},
		{
			notification: models.Notification{ID: 8, Recipient: "busy@example.com"},
			claimedAt:    time.Now(),
		},
	}}
	sender := &fakeSender{}
	service := NewNotificationService(store, sender, &fakeNotificationQueue{}, 10)

	require.NoError(t, service.DispatchPending(context.Background()))

	assert.Equal(t, []string{"stale@example.com"}, sender.sent)
	assert.Equal(t, []int64{7}, store.completed)
	require.Len(t, store.processing, 1)
	assert.Equal(t, int64(8), store.processing[0].notification.ID)
}

func TestDispatchPendingRespectsBatchSize(t *testing.T) {
	store := &fakeNotificationStore{}
	for i := int64(1); i <= 5; i++ {
		store.pending = append(store.pending, models.Notification{ID: i, Recipient: "jane@example.com"})
	}

	service := NewNotificationService(store, &fakeSender{}, &fakeNotificationQueue{}, 2)

	require.NoError(t, service.DispatchPending(context.Background()))
	assert.Len(t, store.completed, 2)
	assert.Len(t, store.pending, 3)
}

func TestStartDispatchingRunsOnJobQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeNotificationStore{pending: []models.Notification{{ID: 1, Recipient: "jane@example.com"}}}
	queue := NewJobQueueService(ctx, 4, 1)
	defer queue.Shutdown()

	service := NewNotificationService(store, &fakeSender{}, queue, 10)
	service.StartDispatching(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.completed) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotificationTemplatesEscapeHTML(t *testing.T) {
	store := newFakeStore()
	order := orderFromDB(store.addOrder("confirmed", "completed", nil))
	order.ShippingAddress.FullName = "<script>alert(1)</script>"

	for _, notification := range []models.Notification{
		orderPlacedNotification(order),
		statusChangedNotification(order),
		paymentResultNotification(order),
	} {
		assert.NotContains(t, notification.Body, "<script>")
		assert.Contains(t, notification.Body, order.OrderNumber)
		assert.Equal(t, "jane@example.com", notification.Recipient)
	}
}
