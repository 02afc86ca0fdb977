package billingapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/music-billing/internal/cache"
	"github.com/magabrotheeeer/music-billing/internal/config"
	"github.com/magabrotheeeer/music-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/music-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/migrations"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/services/billing"
	"github.com/magabrotheeeer/music-billing/internal/services/catalog"
	"github.com/magabrotheeeer/music-billing/internal/services/checkout"
	"github.com/magabrotheeeer/music-billing/internal/services/webhook"
	"github.com/magabrotheeeer/music-billing/internal/storage"
)

// App: HTTP API биллинга.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилище, кеш и очередь, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "billingapi.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
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

	publisher, err := rabbitmq.NewPublisher(ch, cfg.Exchange, cfg.RoutingKey, cfg.PublishTimeout)
	if err != nil {
		ch.Close()
		conn.Close()
		db.DB.Close()
		cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	provider := paymentprovider.NewClient(cfg.SecretKey)
	reconciler := billing.New(db, provider, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, Services{
		Webhook: webhook.New(
			paymentprovider.NewWebhookParser(cfg.WebhookSecret),
			db,
			publisher,
			logger,
		),
		Checkout: checkout.New(reconciler, provider, cfg.Stripe.SiteURL(), logger),
		Catalog:  catalog.New(db, cacheRedis, cfg.CatalogTTL, logger),
		Tokens:   jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Health:   db,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
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

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
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
