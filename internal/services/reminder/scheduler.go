// Package reminder периодически находит подписки с истекающим сроком
// и публикует напоминания о продлении в очередь воркеров.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/mishkagorka/subscription-access/internal/lib/rabbitmq"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// ExpiringRepository описывает нужную планировщику часть хранилища.
type ExpiringRepository interface {
	FindExpiringWithin(ctx context.Context, within time.Duration) ([]models.ExpiringEntitlement, error)
}

// Scheduler рассылает напоминания об истекающих подписках.
type Scheduler struct {
	repo     ExpiringRepository
	log      *slog.Logger
	interval time.Duration
	horizon  time.Duration

	// Подменяется в тестах.
	publish func(message any) error
}

// New создаёт планировщик, публикующий напоминания в канал RabbitMQ.
func New(repo ExpiringRepository, ch *amqp.Channel, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		repo:     repo,
		log:      log,
		interval: interval,
		horizon:  24 * time.Hour,
		publish: func(message any) error {
			return rabbitmq.PublishMessage(ch, "reminders", "upcoming", message)
		},
	}
}

// Run выполняет проход сразу и затем по таймеру, пока не отменён контекст.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.log.Info("looking for subscriptions expiring soon")

	expiring, err := s.repo.FindExpiringWithin(ctx, s.horizon)
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return
	}
	if len(expiring) == 0 {
		s.log.Info("no expiring subscriptions found")
		return
	}

	s.log.Info("found expiring subscriptions", slog.Int("count", len(expiring)))
	for _, entitlement := range expiring {
		if err := s.publish(entitlement); err != nil {
			s.log.Error("failed to publish reminder",
				slog.Int64("user_id", entitlement.UserID), sl.Err(err))
		}
	}
}
