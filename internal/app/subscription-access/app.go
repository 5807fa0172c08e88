package subscriptionaccess

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/mishkagorka/subscription-access/internal/backup"
	"github.com/mishkagorka/subscription-access/internal/cache"
	"github.com/mishkagorka/subscription-access/internal/config"
	"github.com/mishkagorka/subscription-access/internal/lib/rabbitmq"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
	"github.com/mishkagorka/subscription-access/internal/lib/token"
	"github.com/mishkagorka/subscription-access/internal/migrations"
	"github.com/mishkagorka/subscription-access/internal/services/engine"
	"github.com/mishkagorka/subscription-access/internal/services/reminder"
	"github.com/mishkagorka/subscription-access/internal/storage/repository"
)

const reminderInterval = 12 * time.Hour

// App связывает все компоненты сервиса.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	cfg       *config.Config
	db        *repository.Storage
	cache     *cache.Cache
	backups   *backup.Manager
	scheduler *reminder.Scheduler
	amqpConn  *amqp.Connection

	// Доставка копий администраторам; nil отключает рассылку.
	courier backup.Courier
}

// New инициализирует приложение. Порядок жёсткий: сначала восстановление
// файла базы, затем миграции, и только потом кеш и HTTP.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	backups, err := backup.New(cfg.StoragePath, cfg.Backup.Dir, cfg.Backup.BootstrapEmpty, logger)
	if err != nil {
		return nil, err
	}
	if err = backups.AutoRestoreIfMissing(ctx, nil); err != nil {
		return nil, err
	}

	db, err := repository.New(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	eng := engine.New(db, cacheRedis, token.NewMaker(cfg.AccessToken.SecretKey), cfg, logger)

	var amqpConn *amqp.Connection
	var scheduler *reminder.Scheduler
	if cfg.Rabbit.URI != "" {
		amqpConn, err = rabbitmq.Connect(cfg.Rabbit.URI, cfg.Rabbit.MaxRetries, cfg.Rabbit.RetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(amqpConn, rabbitmq.GetReminderQueues())
		if err != nil {
			return nil, err
		}
		scheduler = reminder.New(db, ch, reminderInterval, logger)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, eng, cacheRedis, cfg)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:    srv,
		logger:    logger,
		cfg:       cfg,
		db:        db,
		cache:     cacheRedis,
		backups:   backups,
		scheduler: scheduler,
		amqpConn:  amqpConn,
	}, nil
}

// WithBackupCourier включает рассылку свежих копий администраторам.
func (a *App) WithBackupCourier(courier backup.Courier) *App {
	a.courier = courier
	return a
}

// Run запускает HTTP-сервер и фоновые службы и блокируется до остановки.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		go a.scheduler.Run(ctx)
	}
	go a.backupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.amqpConn != nil {
			_ = a.amqpConn.Close()
		}
		_ = a.cache.Close()
		_ = a.db.DB.Close()
		return err
	}
}

// backupLoop периодически снимает копию базы, чистит устаревшие
// и при настроенном курьере рассылает свежую копию администраторам.
func (a *App) backupLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Backup.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path, err := a.backups.Create(false)
			if err != nil {
				a.logger.Error("failed to create backup", sl.Err(err))
				continue
			}
			if _, err := a.backups.CleanupOld(a.cfg.Backup.RetentionDays); err != nil {
				a.logger.Error("failed to prune old backups", sl.Err(err))
			}
			if a.courier != nil && len(a.cfg.Backup.AdminIDs) > 0 {
				sent := a.backups.Distribute(ctx, a.courier, a.cfg.Backup.AdminIDs, path)
				a.logger.Info("backup distributed", slog.Int("recipients", sent))
			}
		}
	}
}
