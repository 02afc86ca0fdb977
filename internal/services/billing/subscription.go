package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/storage"
)

// ManageSubscriptionStatusChange перечитывает подписку у провайдера и перезаписывает её локальную копию.
// Для новой подписки дополнительно копирует платёжные данные способа оплаты по умолчанию;
// к этому моменту подписка уже сохранена и не откатывается при ошибке копирования.
func (r *Reconciler) ManageSubscriptionStatusChange(ctx context.Context, subscriptionID, customerID string, createAction bool) error {
	const op = "billing.ManageSubscriptionStatusChange"
	log := r.log.With(slog.String("op", op), slog.String("subscription_id", subscriptionID))

	userID, err := r.store.GetUserIDByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: customer %s: %w", op, customerID, ErrCustomerNotMapped)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	remote, err := r.provider.RetrieveSubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sub, err := projectSubscription(userID, remote)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.store.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("subscription upserted",
		slog.String("user_id", userID),
		slog.String("status", string(sub.Status)),
		slog.String("price_id", sub.PriceID))

	if createAction && remote.DefaultPaymentMethod != nil {
		pm := *remote.DefaultPaymentMethod
		if pm.CustomerID == "" {
			pm.CustomerID = customerID
		}
		if err := r.CopyBillingDetailsToCustomer(ctx, userID, pm); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// projectSubscription строит локальную запись подписки. Цена, количество и границы периода
// берутся только из первой позиции.
func projectSubscription(userID string, s *paymentprovider.Subscription) (models.Subscription, error) {
	if len(s.Items) == 0 {
		return models.Subscription{}, fmt.Errorf("subscription %s: %w", s.ID, ErrNoSubscriptionItems)
	}
	item := s.Items[0]

	return models.Subscription{
		ID:                 s.ID,
		UserID:             userID,
		Status:             models.SubscriptionStatus(s.Status),
		Metadata:           s.Metadata,
		PriceID:            item.PriceID,
		Quantity:           item.Quantity,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		Created:            toTime(s.Created),
		CurrentPeriodStart: toTime(item.CurrentPeriodStart),
		CurrentPeriodEnd:   toTime(item.CurrentPeriodEnd),
		EndedAt:            toTimePtr(s.EndedAt),
		CancelAt:           toTimePtr(s.CancelAt),
		CanceledAt:         toTimePtr(s.CanceledAt),
		TrialStart:         toTimePtr(s.TrialStart),
		TrialEnd:           toTimePtr(s.TrialEnd),
	}, nil
}

// toTime переводит секунды эпохи в время UTC.
func toTime(secs int64) time.Time {
	return time.Unix(secs, 0).UTC()
}

// toTimePtr переводит секунды эпохи в время UTC; 0 означает отсутствие отметки.
func toTimePtr(secs int64) *time.Time {
	if secs == 0 {
		return nil
	}
	t := toTime(secs)
	return &t
}
