package billing

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
)

// Handle выбирает операцию сверки по виду события и выполняет её.
func (r *Reconciler) Handle(ctx context.Context, ev paymentprovider.Event) error {
	const op = "billing.Handle"

	switch ev.Kind {
	case paymentprovider.EventProductChanged:
		if ev.Product == nil {
			return fmt.Errorf("%s: %s without product: %w", op, ev.ID, ErrMalformedEvent)
		}
		return r.UpsertProductRecord(ctx, *ev.Product)
	case paymentprovider.EventPriceChanged:
		if ev.Price == nil {
			return fmt.Errorf("%s: %s without price: %w", op, ev.ID, ErrMalformedEvent)
		}
		return r.UpsertPriceRecord(ctx, *ev.Price)
	case paymentprovider.EventSubscriptionChanged:
		if ev.SubscriptionID == "" || ev.CustomerID == "" {
			return fmt.Errorf("%s: %s without subscription or customer: %w", op, ev.ID, ErrMalformedEvent)
		}
		return r.ManageSubscriptionStatusChange(ctx, ev.SubscriptionID, ev.CustomerID, ev.CreateAction)
	case paymentprovider.EventCustomerResolution:
		if ev.UserID == "" {
			return fmt.Errorf("%s: %s without user: %w", op, ev.ID, ErrMalformedEvent)
		}
		_, err := r.CreateOrRetrieveCustomer(ctx, ev.UserID, ev.Email)
		return err
	default:
		return fmt.Errorf("%s: unknown kind %q: %w", op, ev.Kind, ErrMalformedEvent)
	}
}
