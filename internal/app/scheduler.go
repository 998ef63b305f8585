package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/infra/metrics"
	"go.uber.org/zap"
)

// ViewRefresher перечитывает кэшированные представления
type ViewRefresher interface {
	Refresh(ctx context.Context, studentID string) error
	RefreshAll(ctx context.Context) error
}

// Scheduler управляет фоновыми задачами: отложенные обновления после отмены
// и периодическое обновление всех представлений
type Scheduler struct {
	views    ViewRefresher
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	pending  map[string]*time.Timer
	stopped  bool
	stopChan chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(views ViewRefresher, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		views:    views,
		interval: interval,
		logger:   logger,
		ctx:      context.Background(),
		pending:  make(map[string]*time.Timer),
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("refresh_interval", s.interval))

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	go s.runRefreshTask(ctx)
}

// Stop останавливает фоновые задачи и отменяет отложенные обновления
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.logger.Info("Stopping background scheduler")
	s.stopped = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	close(s.stopChan)
}

// ScheduleRefresh обновляет представления студента через delay.
// Повторный вызов до срабатывания переносит обновление.
func (s *Scheduler) ScheduleRefresh(studentID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	if t, ok := s.pending[studentID]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.stopped || s.pending[studentID] != timer {
			s.mu.Unlock()
			return
		}
		delete(s.pending, studentID)
		ctx := s.ctx
		s.mu.Unlock()

		if err := s.views.Refresh(ctx, studentID); err != nil {
			s.logger.Warn("Delayed refresh failed",
				zap.String("student_id", studentID),
				zap.Error(err))
			return
		}
		s.logger.Debug("Delayed refresh completed", zap.String("student_id", studentID))
	})
	s.pending[studentID] = timer
}

// runRefreshTask периодически обновляет все кэшированные представления
func (s *Scheduler) runRefreshTask(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refreshAll(ctx)
		case <-s.stopChan:
			s.logger.Info("View refresh task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("View refresh task cancelled")
			return
		}
	}
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	metrics.ViewRefreshes.WithLabelValues(metrics.TriggerPeriodic).Inc()
	if err := s.views.RefreshAll(ctx); err != nil {
		s.logger.Error("Failed to refresh views", zap.Error(err))
		return
	}
	s.logger.Debug("Periodic view refresh completed")
}
