package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/storage"
)

// CreateOrRetrieveCustomer возвращает клиента провайдера для пользователя, создавая его при отсутствии.
// Связка записывается условно: если конкурентный вызов успел её записать, используется его клиент,
// а созданный здесь удаляется у провайдера. Клиент удаляется и при любой другой ошибке записи связки.
func (r *Reconciler) CreateOrRetrieveCustomer(ctx context.Context, userID, email string) (string, error) {
	const op = "billing.CreateOrRetrieveCustomer"
	log := r.log.With(slog.String("op", op), slog.String("user_id", userID))

	customerID, err := r.store.GetCustomerByUserID(ctx, userID)
	if err == nil {
		return customerID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	customerID, err = r.provider.CreateCustomer(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	err = r.store.AttachCustomer(ctx, userID, customerID)
	if err == nil {
		log.Info("customer created", slog.String("customer_id", customerID))
		return customerID, nil
	}
	if !errors.Is(err, storage.ErrAlreadyExists) {
		r.deleteOrphan(ctx, log, customerID)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	existing, err := r.store.GetCustomerByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	log.Warn("lost customer creation race",
		slog.String("customer_id", existing),
		slog.String("orphan_customer_id", customerID))
	r.deleteOrphan(ctx, log, customerID)
	return existing, nil
}

// deleteOrphan удаляет у провайдера клиента, связка с которым не записалась.
func (r *Reconciler) deleteOrphan(ctx context.Context, log *slog.Logger, customerID string) {
	if err := r.provider.DeleteCustomer(ctx, customerID); err != nil {
		log.Error("failed to delete orphan customer", slog.String("orphan_customer_id", customerID), sl.Err(err))
	}
}
