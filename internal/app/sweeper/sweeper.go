// Package sweeper собирает процесс дозавершения зависших намерений копирования платёжных данных.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/music-billing/internal/config"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/services/billing"
	sweeperservice "github.com/magabrotheeeer/music-billing/internal/services/sweeper"
	"github.com/magabrotheeeer/music-billing/internal/storage"
)

// App: процесс sweeper.
type App struct {
	db      *storage.Storage
	service *sweeperservice.Service
	logger  *slog.Logger
}

// New подключает хранилище и собирает сервис.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "sweeper.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := storage.WaitReady(db, cfg.ConnectRetries, cfg.ConnectDelay); err != nil {
		db.DB.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reconciler := billing.New(db, paymentprovider.NewClient(cfg.SecretKey), logger)

	return &App{
		db:      db,
		service: sweeperservice.New(db, reconciler, cfg.Sweeper, logger),
		logger:  logger,
	}, nil
}

// Run выполняет проходы до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("sweeper started")
	a.service.Run(ctx)
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
