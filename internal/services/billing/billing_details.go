package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
)

// CopyBillingDetailsToCustomer переносит имя, телефон и адрес способа оплаты в клиента провайдера,
// затем перезаписывает адрес и снимок способа оплаты у пользователя.
// Неполные платёжные данные пропускаются без ошибки.
//
// Перед вызовом провайдера пишется намерение; оно закрывается после записи в users.
// Повторная доставка того же события переиспользует незакрытое намерение.
// Незакрытые намерения дозавершает ResumeIntent.
func (r *Reconciler) CopyBillingDetailsToCustomer(ctx context.Context, userID string, pm paymentprovider.PaymentMethod) error {
	const op = "billing.CopyBillingDetailsToCustomer"
	log := r.log.With(slog.String("op", op), slog.String("user_id", userID))

	if pm.CustomerID == "" || !pm.BillingDetails.Complete() {
		log.Debug("billing details incomplete, skipping", slog.String("payment_method_id", pm.ID))
		return nil
	}

	payload, err := json.Marshal(pm)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	intentID, err := r.store.CreateIntent(ctx, models.Intent{
		Kind:            models.IntentCopyBillingDetails,
		UserID:          userID,
		CustomerID:      pm.CustomerID,
		PaymentMethodID: pm.ID,
		Payload:         payload,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.applyBillingDetails(ctx, intentID, userID, pm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResumeIntent повторяет незавершённое намерение. Обе записи идемпотентны,
// поэтому намерение можно повторять с начала.
func (r *Reconciler) ResumeIntent(ctx context.Context, intent models.Intent) error {
	const op = "billing.ResumeIntent"

	if intent.Kind != models.IntentCopyBillingDetails {
		return fmt.Errorf("%s: unknown intent kind %q", op, intent.Kind)
	}
	var pm paymentprovider.PaymentMethod
	if err := json.Unmarshal(intent.Payload, &pm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if pm.CustomerID == "" {
		pm.CustomerID = intent.CustomerID
	}
	if !pm.BillingDetails.Complete() {
		return fmt.Errorf("%s: intent %d carries incomplete billing details", op, intent.ID)
	}

	if err := r.applyBillingDetails(ctx, intent.ID, intent.UserID, pm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Reconciler) applyBillingDetails(ctx context.Context, intentID int64, userID string, pm paymentprovider.PaymentMethod) error {
	log := r.log.With(slog.String("user_id", userID), slog.Int64("intent_id", intentID))

	if err := r.provider.UpdateCustomerBillingDetails(ctx, pm.CustomerID, pm.BillingDetails); err != nil {
		r.failIntent(ctx, intentID, err)
		return err
	}

	profile := models.BillingProfile{
		BillingAddress: *pm.BillingDetails.Address,
		PaymentMethod:  pm.Details,
	}
	n, err := r.store.UpdateUserBilling(ctx, userID, profile)
	if err != nil {
		r.failIntent(ctx, intentID, err)
		return err
	}
	if n == 0 {
		log.Warn("user not found, billing profile not stored")
	}

	if err := r.store.CompleteIntent(ctx, intentID); err != nil {
		log.Warn("failed to complete intent", sl.Err(err))
	}
	log.Info("billing details copied", slog.String("customer_id", pm.CustomerID))
	return nil
}

func (r *Reconciler) failIntent(ctx context.Context, intentID int64, cause error) {
	if err := r.store.FailIntent(ctx, intentID, cause.Error()); err != nil {
		r.log.Warn("failed to record intent failure", slog.Int64("intent_id", intentID), sl.Err(err))
	}
}
