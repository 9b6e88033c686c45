package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"go.uber.org/zap"
)

var (
	ErrJobQueueIsFull = errors.New("job queue is full")
	ErrJobQueueClosed = errors.New("job queue is closed")
)

// Job представляет собой функцию, выполняющуюся в очереди заданий.
type Job func(ctx context.Context)

// JobQueueService пул воркеров для фоновых заданий (рассылка уведомлений).
type JobQueueService struct {
	jobs chan Job
	wg   sync.WaitGroup
	// mu защищает paused и resume: воркер читает их вместе.
	mu      sync.Mutex
	paused  bool
	resume  chan struct{}
	closing int32
	// sendMu не даёт закрыть канал jobs во время отправки в него.
	sendMu sync.RWMutex
}

// NewJobQueueService создает очередь с буфером capacity и запускает workers воркеров.
func NewJobQueueService(ctx context.Context, capacity, workers int) *JobQueueService {
	service := &JobQueueService{
		jobs:   make(chan Job, capacity),
		resume: make(chan struct{}),
	}
	service.start(ctx, workers)

	return service
}

func (jqs *JobQueueService) start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		jqs.wg.Add(1)

		go func() {
			defer jqs.wg.Done()

			for {
				select {
				case job, ok := <-jqs.jobs:
					if !ok {
						return
					}

					if resume, paused := jqs.pauseState(); paused {
						select {
						case <-resume:
						case <-ctx.Done():
							return
						}
					}

					job(ctx)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

// Enqueue добавляет задание в очередь без блокировки.
func (jqs *JobQueueService) Enqueue(job Job) error {
	jqs.sendMu.RLock()
	defer jqs.sendMu.RUnlock()

	if atomic.LoadInt32(&jqs.closing) == 1 {
		return ErrJobQueueClosed
	}

	select {
	case jqs.jobs <- job:
		return nil
	default:
		return ErrJobQueueIsFull
	}
}

// ScheduleJob ставит задание в очередь через delay.
func (jqs *JobQueueService) ScheduleJob(job Job, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := jqs.Enqueue(job); err != nil {
			logger.Log.Warn("failed to schedule job", zap.Error(err))
		}
	})
}

// Every ставит задание в очередь с периодом interval, пока не отменён ctx.
// Если очередь заполнена, очередной тик пропускается.
func (jqs *JobQueueService) Every(ctx context.Context, interval time.Duration, job Job) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := jqs.Enqueue(job); err != nil {
					if errors.Is(err, ErrJobQueueClosed) {
						return
					}
					logger.Log.Warn("periodic job skipped", zap.Error(err))
				}
			}
		}
	}()
}

// pauseState возвращает канал, закрываемый при следующем Resume, и признак паузы.
func (jqs *JobQueueService) pauseState() (<-chan struct{}, bool) {
	jqs.mu.Lock()
	defer jqs.mu.Unlock()
	return jqs.resume, jqs.paused
}

// Pause приостанавливает выполнение заданий.
func (jqs *JobQueueService) Pause() {
	jqs.mu.Lock()
	defer jqs.mu.Unlock()
	jqs.paused = true
}

// Resume возобновляет выполнение заданий после паузы.
func (jqs *JobQueueService) Resume() {
	jqs.mu.Lock()
	defer jqs.mu.Unlock()

	if !jqs.paused {
		return
	}
	jqs.paused = false
	close(jqs.resume)
	jqs.resume = make(chan struct{})
}

// PauseAndResume приостанавливает выполнение заданий на delay, а затем возобновляет.
func (jqs *JobQueueService) PauseAndResume(delay time.Duration) {
	jqs.Pause()
	time.AfterFunc(delay, func() {
		jqs.Resume()
	})
}

// Shutdown закрывает очередь и ожидает завершения всех воркеров.
func (jqs *JobQueueService) Shutdown() {
	if atomic.CompareAndSwapInt32(&jqs.closing, 0, 1) {
		jqs.sendMu.Lock()
		close(jqs.jobs)
		jqs.sendMu.Unlock()

		jqs.Resume()
		jqs.wg.Wait()
	}
}
