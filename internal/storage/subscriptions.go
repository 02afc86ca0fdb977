package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/music-billing/internal/models"
)

// UpsertSubscription вставляет подписку или полностью заменяет существующую с тем же ID.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpsertSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	metadata, err := marshalJSON(sub.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO subscriptions (id, user_id, status, metadata, price_id, quantity,
			      cancel_at_period_end, created, current_period_start, current_period_end,
			      ended_at, cancel_at, canceled_at, trial_start, trial_end)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			  ON CONFLICT (id) DO UPDATE SET
			      user_id = EXCLUDED.user_id,
			      status = EXCLUDED.status,
			      metadata = EXCLUDED.metadata,
			      price_id = EXCLUDED.price_id,
			      quantity = EXCLUDED.quantity,
			      cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			      created = EXCLUDED.created,
			      current_period_start = EXCLUDED.current_period_start,
			      current_period_end = EXCLUDED.current_period_end,
			      ended_at = EXCLUDED.ended_at,
			      cancel_at = EXCLUDED.cancel_at,
			      canceled_at = EXCLUDED.canceled_at,
			      trial_start = EXCLUDED.trial_start,
			      trial_end = EXCLUDED.trial_end`
	_, err = s.DB.ExecContext(ctx, query,
		sub.ID, sub.UserID, string(sub.Status), metadata, sub.PriceID, sub.Quantity,
		sub.CancelAtPeriodEnd, sub.Created, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.EndedAt, sub.CancelAt, sub.CanceledAt, sub.TrialStart, sub.TrialEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const subscriptionColumns = `s.id, s.user_id, s.status, s.metadata, s.price_id, s.quantity,
	s.cancel_at_period_end, s.created, s.current_period_start, s.current_period_end,
	s.ended_at, s.cancel_at, s.canceled_at, s.trial_start, s.trial_end`

// GetSubscription возвращает подписку по ID.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s WHERE s.id = $1`
	var sub models.Subscription
	if err := scanSubscription(s.DB.QueryRowContext(ctx, query, id), &sub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// GetActiveSubscription возвращает самую свежую подписку пользователя в статусе
// trialing или active вместе с ценой и продуктом.
func (s *Storage) GetActiveSubscription(ctx context.Context, userID string) (*models.SubscriptionDetails, error) {
	const op = "storage.GetActiveSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + `,
			      pr.id, pr.product_id, pr.active, pr.description, pr.unit_amount, pr.currency, pr.type,
			      pr.interval, pr.interval_count, pr.trial_period_days, pr.metadata,
			      p.id, p.active, p.name, p.description, p.image, p.metadata
			  FROM subscriptions s
			  JOIN prices pr ON pr.id = s.price_id
			  JOIN products p ON p.id = pr.product_id
			  WHERE s.user_id = $1 AND s.status IN ('trialing', 'active')
			  ORDER BY s.created DESC
			  LIMIT 1`

	var (
		details                   models.SubscriptionDetails
		prDescription, prInterval sql.NullString
		prAmount, prCount, prTrl  sql.NullInt64
		prType                    string
		prMetadata, pMetadata     []byte
		pDescription, pImage      sql.NullString
	)
	sc := &subscriptionScan{}
	dest := append(sc.dest(&details.Subscription),
		&details.Price.ID, &details.Price.ProductID, &details.Price.Active, &prDescription, &prAmount,
		&details.Price.Currency, &prType, &prInterval, &prCount, &prTrl, &prMetadata,
		&details.Product.ID, &details.Product.Active, &details.Product.Name, &pDescription, &pImage, &pMetadata)

	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := sc.apply(&details.Subscription); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	details.Price.Type = models.PriceType(prType)
	details.Price.Description = nullString(prDescription)
	details.Price.UnitAmount = nullInt64(prAmount)
	details.Price.Interval = nullString(prInterval)
	details.Price.IntervalCount = nullInt64(prCount)
	details.Price.TrialPeriodDays = nullInt64(prTrl)
	details.Product.Description = nullString(pDescription)
	details.Product.Image = nullString(pImage)
	if err := unmarshalMetadata(prMetadata, &details.Price.Metadata); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := unmarshalMetadata(pMetadata, &details.Product.Metadata); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &details, nil
}

// subscriptionScan собирает nullable-колонки подписки до переноса в модель.
type subscriptionScan struct {
	status                                         string
	metadata                                       []byte
	endedAt, cancelAt, canceledAt, trialStart, end sql.NullTime
}

func (sc *subscriptionScan) dest(sub *models.Subscription) []any {
	return []any{
		&sub.ID, &sub.UserID, &sc.status, &sc.metadata, &sub.PriceID, &sub.Quantity,
		&sub.CancelAtPeriodEnd, &sub.Created, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sc.endedAt, &sc.cancelAt, &sc.canceledAt, &sc.trialStart, &sc.end,
	}
}

func (sc *subscriptionScan) apply(sub *models.Subscription) error {
	sub.Status = models.SubscriptionStatus(sc.status)
	sub.Created = sub.Created.UTC()
	sub.CurrentPeriodStart = sub.CurrentPeriodStart.UTC()
	sub.CurrentPeriodEnd = sub.CurrentPeriodEnd.UTC()
	sub.EndedAt = nullTime(sc.endedAt)
	sub.CancelAt = nullTime(sc.cancelAt)
	sub.CanceledAt = nullTime(sc.canceledAt)
	sub.TrialStart = nullTime(sc.trialStart)
	sub.TrialEnd = nullTime(sc.end)
	return unmarshalMetadata(sc.metadata, &sub.Metadata)
}

func scanSubscription(row rowScanner, sub *models.Subscription) error {
	sc := &subscriptionScan{}
	if err := row.Scan(sc.dest(sub)...); err != nil {
		return err
	}
	return sc.apply(sub)
}
