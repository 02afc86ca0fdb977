// Package catalog отдаёт витрину активных продуктов с ценами и активную подписку пользователя.
// Витрина кешируется в Redis и сбрасывается воркером после изменения продукта или цены.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/models"
)

// ActiveProductsKey: ключ кеша витрины.
const ActiveProductsKey = "catalog:active_products"

// Repository: чтение каталога и подписок из хранилища.
type Repository interface {
	ListActiveProductsWithPrices(ctx context.Context) ([]models.ProductWithPrices, error)
	GetActiveSubscription(ctx context.Context, userID string) (*models.SubscriptionDetails, error)
}

// Cache: JSON-кеш.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Service читает витрину через кеш.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт Service. ttl: время жизни витрины в кеше.
func New(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// ListActiveProducts возвращает активные продукты с активными ценами.
// Ошибки кеша не прерывают запрос: витрина читается из хранилища.
func (s *Service) ListActiveProducts(ctx context.Context) ([]models.ProductWithPrices, error) {
	const op = "catalog.ListActiveProducts"

	var cached []models.ProductWithPrices
	found, err := s.cache.Get(ctx, ActiveProductsKey, &cached)
	if err != nil {
		s.log.Warn("failed to read catalog from cache", slog.String("op", op), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	products, err := s.repo.ListActiveProductsWithPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(ctx, ActiveProductsKey, products, s.ttl); err != nil {
		s.log.Warn("failed to cache catalog", slog.String("op", op), sl.Err(err))
	}
	return products, nil
}

// Invalidate сбрасывает закешированную витрину.
func (s *Service) Invalidate(ctx context.Context) error {
	const op = "catalog.Invalidate"
	if err := s.cache.Invalidate(ctx, ActiveProductsKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetActiveSubscription возвращает действующую подписку пользователя (trialing или active).
// Если подписки нет, возвращает storage.ErrNotFound.
func (s *Service) GetActiveSubscription(ctx context.Context, userID string) (*models.SubscriptionDetails, error) {
	const op = "catalog.GetActiveSubscription"
	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}
