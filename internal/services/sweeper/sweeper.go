// Package sweeper доводит до конца зависшие намерения копирования платёжных данных.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/music-billing/internal/config"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/metrics"
	"github.com/magabrotheeeer/music-billing/internal/models"
)

// IntentRepository: выборка зависших намерений.
type IntentRepository interface {
	ListStaleIntents(ctx context.Context, olderThan time.Duration, maxAttempts, limit int) ([]models.Intent, error)
	CountExhaustedIntents(ctx context.Context, maxAttempts int) (int, error)
}

// Resumer повторяет работу намерения.
type Resumer interface {
	ResumeIntent(ctx context.Context, intent models.Intent) error
}

// Service периодически возобновляет зависшие намерения.
type Service struct {
	repo    IntentRepository
	resumer Resumer
	cfg     config.Sweeper
	log     *slog.Logger
}

// New создаёт Service.
func New(repo IntentRepository, resumer Resumer, cfg config.Sweeper, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		resumer: resumer,
		cfg:     cfg,
		log:     log,
	}
}

// Run запускает проход сразу и затем по тикеру, пока не отменён ctx.
func (s *Service) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep выполняет один проход и возвращает число успешно и неуспешно возобновлённых намерений.
func (s *Service) Sweep(ctx context.Context) (resumed, failed int) {
	const op = "sweeper.Sweep"
	log := s.log.With(slog.String("op", op))

	intents, err := s.repo.ListStaleIntents(ctx, s.cfg.StaleAfter, s.cfg.MaxAttempts, s.cfg.BatchSize)
	if err != nil {
		log.Error("failed to list stale intents", sl.Err(err))
		return 0, 0
	}
	if len(intents) > 0 {
		log.Info("found stale intents", slog.Int("count", len(intents)))
	}

	for _, intent := range intents {
		if ctx.Err() != nil {
			break
		}
		if err := s.resumer.ResumeIntent(ctx, intent); err != nil {
			failed++
			metrics.IntentsSwept.WithLabelValues(metrics.ResultFailed).Inc()
			log.Warn("failed to resume intent",
				slog.Int64("intent_id", intent.ID),
				slog.Int("attempts", intent.Attempts),
				sl.Err(err),
			)
			continue
		}
		resumed++
		metrics.IntentsSwept.WithLabelValues(metrics.ResultOK).Inc()
	}

	exhausted, err := s.repo.CountExhaustedIntents(ctx, s.cfg.MaxAttempts)
	if err != nil {
		log.Error("failed to count exhausted intents", sl.Err(err))
		return resumed, failed
	}
	metrics.IntentsExhausted.Set(float64(exhausted))
	if exhausted > 0 {
		log.Error("intents need manual reconciliation", slog.Int("count", exhausted))
	}
	return resumed, failed
}
