// Package bot собирает приложение: хранилище, сервисы, обработчик событий
// из RabbitMQ, HTTP API и планировщик напоминаний.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	botpkg "github.com/magabrotheeeer/quiz-access-bot/internal/bot"
	"github.com/magabrotheeeer/quiz-access-bot/internal/cache"
	"github.com/magabrotheeeer/quiz-access-bot/internal/config"
	"github.com/magabrotheeeer/quiz-access-bot/internal/http/handlers/health"
	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/membership"
	"github.com/magabrotheeeer/quiz-access-bot/internal/metrics"
	"github.com/magabrotheeeer/quiz-access-bot/internal/migrations"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
	"github.com/magabrotheeeer/quiz-access-bot/internal/rabbitmq"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/access"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/payment"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/scheduler"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/wizard"
	"github.com/magabrotheeeer/quiz-access-bot/internal/session"
	"github.com/magabrotheeeer/quiz-access-bot/internal/storage/memory"
	"github.com/magabrotheeeer/quiz-access-bot/internal/storage/repository"
)

// Store объединяет все операции хранилища, нужные приложению.
type Store interface {
	access.Repository
	payment.Repository
	wizard.Repository
	botpkg.Content
	scheduler.Repository
	ListCards(ctx context.Context, setID int64) ([]models.Card, error)
	Close() error
}

// App представляет приложение бота.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     Store
	cache     *cache.Cache
	conn      *amqp.Connection
	consumeCh *amqp.Channel
	publishCh *amqp.Channel
	handler   *botpkg.Handler
	scheduler *scheduler.SchedulerService
	server    *http.Server
}

type dbChecker struct {
	db *repository.Storage
}

func (c dbChecker) CheckDatabaseReady(ctx context.Context) error {
	return repository.CheckDatabaseReady(ctx, c.db)
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(ctx, db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

func openStore(ctx context.Context, cfg *config.Config) (Store, health.Checker, error) {
	if cfg.StorageDriver == "memory" {
		return memory.New(), nil, nil
	}
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, dbChecker{db: db}, nil
}

// New создает новый экземпляр приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, checker, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	m := metrics.New(prometheus.DefaultRegisterer)

	var wizardSessions session.Store[wizard.State] = session.NewMemoryStore[wizard.State]()
	var browseSessions session.Store[botpkg.Browse] = session.NewMemoryStore[botpkg.Browse]()
	gateOpts := []access.Option{access.WithMetrics(m)}
	if cfg.Session.Backend == "redis" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("cache not initialized: %w", err)
		}
		a.cache = c
		wizardSessions = session.NewRedisStore[wizard.State](c, "wizard")
		browseSessions = session.NewRedisStore[botpkg.Browse](c, "browse")
		gateOpts = append(gateOpts, access.WithCache(c, cfg.EntitlementTTL))
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	a.conn = conn
	a.consumeCh, err = rabbitmq.SetupChannel(conn, rabbitmq.Topology{
		UpdatesQueue:     cfg.UpdatesQueue,
		OutboundExchange: cfg.OutboundExchange,
		OutboundQueues:   rabbitmq.GetOutboundQueues(cfg.OutboundExchange),
		Prefetch:         cfg.Prefetch,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	a.publishCh, err = conn.Channel()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	pub := rabbitmq.NewPublisher(a.publishCh, cfg.OutboundExchange, rabbitmq.RoutingKeyMessage)

	members := membership.NewClient(cfg.APIURL, cfg.BotToken, cfg.ChannelID, cfg.Telegram.Timeout)
	gate := access.New(logger, store, members, cfg.TrialDurationDays, gateOpts...)
	payments := payment.New(logger, store, gate, cfg.Currency, payment.WithMetrics(m))
	wizards := wizard.New(logger, store, wizardSessions, m)

	a.handler = botpkg.New(logger, wizards, gate, payments, store, browseSessions, pub, botpkg.Settings{
		IsAdmin:       cfg.IsAdmin,
		ChannelURL:    cfg.ChannelURL,
		ProviderToken: cfg.ProviderToken,
		RateLimit:     cfg.UserRateLimit,
		RateBurst:     cfg.UserRateBurst,
	}, m)

	if cfg.Reminders.Enabled {
		a.scheduler = scheduler.NewSchedulerService(store, pub, func(userID int64, expiresAt time.Time) any {
			return botpkg.ReminderMessage(userID, expiresAt)
		}, logger, cfg.Reminders.Interval, cfg.Reminders.Window)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, store, gate, checker)
	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return a, nil
}

// Run запускает обработку событий, HTTP-сервер и планировщик и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("consuming updates", slog.String("queue", a.cfg.UpdatesQueue))
		err := rabbitmq.ConsumerMessage(ctx, a.logger, a.consumeCh, a.cfg.UpdatesQueue, a.cfg.Workers, botpkg.UpdateKey, a.handler.HandleMessage)
		if err == nil && ctx.Err() == nil {
			return errors.New("update consumer stopped")
		}
		return err
	})

	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	})

	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Run(ctx)
		})
	}

	return g.Wait()
}

func (a *App) close() {
	if a.publishCh != nil {
		if err := a.publishCh.Close(); err != nil {
			a.logger.Error("failed to close publish channel", sl.Err(err))
		}
	}
	if a.consumeCh != nil {
		if err := a.consumeCh.Close(); err != nil {
			a.logger.Error("failed to close consume channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
