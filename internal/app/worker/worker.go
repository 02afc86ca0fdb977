// Package worker собирает воркер сверки: потребитель очереди событий биллинга.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/music-billing/internal/cache"
	"github.com/magabrotheeeer/music-billing/internal/config"
	"github.com/magabrotheeeer/music-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/services/billing"
	"github.com/magabrotheeeer/music-billing/internal/services/catalog"
	"github.com/magabrotheeeer/music-billing/internal/storage"
)

// App: воркер сверки.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryCh *amqp.Channel
	retry   *rabbitmq.Publisher
	db      *storage.Storage
	cache   *cache.Cache
	handler *EventHandler
	cfg     config.RabbitMQ
	logger  *slog.Logger
}

// New подключает хранилище, кеш и очередь.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "worker.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := storage.WaitReady(db, cfg.ConnectRetries, cfg.ConnectDelay); err != nil {
		db.DB.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.DB.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitURL, cfg.ConnectRetries, cfg.ConnectDelay)
	if err != nil {
		db.DB.Close()
		cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EventsTopology(cfg.RabbitMQ))
	if err != nil {
		conn.Close()
		db.DB.Close()
		cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	retryCh, err := conn.Channel()
	if err != nil {
		ch.Close()
		conn.Close()
		db.DB.Close()
		cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	retry, err := rabbitmq.NewPublisher(retryCh, "", "", cfg.PublishTimeout)
	if err != nil {
		retryCh.Close()
		ch.Close()
		conn.Close()
		db.DB.Close()
		cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reconciler := billing.New(db, paymentprovider.NewClient(cfg.SecretKey), logger)
	catalogService := catalog.New(db, cacheRedis, cfg.CatalogTTL, logger)

	return &App{
		conn:    conn,
		ch:      ch,
		retryCh: retryCh,
		retry:   retry,
		db:      db,
		cache:   cacheRedis,
		handler: NewEventHandler(reconciler, catalogService, db, logger),
		cfg:     cfg.RabbitMQ,
		logger:  logger,
	}, nil
}

// Run потребляет очередь до отмены ctx. Если брокер закрыл доставку, Run возвращает ошибку,
// чтобы процесс перезапустился. Перед закрытием соединений дожидается начатых обработчиков.
func (a *App) Run(ctx context.Context) error {
	const op = "worker.Run"
	consumer := rabbitmq.EventsConsumer(a.cfg, a.retry)
	done, err := rabbitmq.ConsumerMessage(ctx, a.ch, consumer, func(body []byte) error {
		return a.handler.Handle(ctx, body)
	}, a.logger)
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", a.cfg.Queue), sl.Err(err))
		a.close()
		return err
	}
	a.logger.Info("worker started",
		slog.String("queue", a.cfg.Queue),
		slog.Int("concurrency", a.cfg.Concurrency),
		slog.Int("retry_limit", a.cfg.RetryLimit),
	)

	select {
	case <-ctx.Done():
		a.logger.Info("worker shutting down gracefully")
		if err := <-done; err != nil {
			a.logger.Warn("consumer stopped with error during shutdown", sl.Err(err))
		}
		a.close()
		return nil
	case err := <-done:
		a.logger.Error("consumer stopped unexpectedly", sl.Err(err))
		a.close()
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.retryCh.Close(); err != nil {
		a.logger.Error("failed to close retry channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
