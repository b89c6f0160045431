// Package scheduler периодически находит пользователей, у которых скоро
// заканчивается доступ, и отправляет им напоминание.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// Repository ищет записи доступа, истекающие в интервале (from, to].
type Repository interface {
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Entitlement, error)
}

// Publisher отправляет сообщения транспорту.
type Publisher interface {
	Publish(ctx context.Context, message any) error
}

// MessageBuilder строит напоминание для пользователя.
type MessageBuilder func(userID int64, expiresAt time.Time) any

// SchedulerService рассылает напоминания об окончании доступа.
type SchedulerService struct {
	repo     Repository
	pub      Publisher
	build    MessageBuilder
	log      *slog.Logger
	interval time.Duration
	window   time.Duration
	now      func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// Каждый запуск охватывает window вперёд. При window == interval
// пользователь получает одно напоминание.
func NewSchedulerService(repo Repository, pub Publisher, build MessageBuilder, log *slog.Logger, interval, window time.Duration) *SchedulerService {
	return &SchedulerService{
		repo:     repo,
		pub:      pub,
		build:    build,
		log:      log,
		interval: interval,
		window:   window,
		now:      time.Now,
	}
}

// Run выполняет рассылку сразу и затем по таймеру до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context) error {
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("reminder run failed", sl.Err(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error("reminder run failed", sl.Err(err))
			}
		}
	}
}

// RunOnce отправляет напоминания всем, чей доступ истекает в ближайшие window.
// Возвращает число отправленных напоминаний.
func (s *SchedulerService) RunOnce(ctx context.Context) (int, error) {
	const op = "scheduler.RunOnce"
	log := s.log.With(slog.String("op", op))

	from := s.now()
	expiring, err := s.repo.FindExpiringBetween(ctx, from, from.Add(s.window))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(expiring) == 0 {
		log.Debug("no expiring entitlements found")
		return 0, nil
	}

	log.Info("found expiring entitlements", slog.Int("count", len(expiring)))
	sent := 0
	for _, e := range expiring {
		if e.ExpiresAt == nil {
			continue
		}
		if err := s.pub.Publish(ctx, s.build(e.UserID, *e.ExpiresAt)); err != nil {
			log.Error("failed to publish reminder", sl.UserID(e.UserID), sl.Err(err))
			continue
		}
		sent++
	}
	return sent, nil
}
