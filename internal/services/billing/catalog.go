package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
)

// UpsertProductRecord полностью заменяет запись продукта снимком провайдера.
func (r *Reconciler) UpsertProductRecord(ctx context.Context, p paymentprovider.Product) error {
	const op = "billing.UpsertProductRecord"

	product := projectProduct(p)
	if err := r.store.UpsertProduct(ctx, product); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.log.Info("product upserted", slog.String("product_id", product.ID))
	return nil
}

// UpsertPriceRecord полностью заменяет запись цены снимком провайдера.
func (r *Reconciler) UpsertPriceRecord(ctx context.Context, p paymentprovider.Price) error {
	const op = "billing.UpsertPriceRecord"

	price := projectPrice(p)
	if err := r.store.UpsertPrice(ctx, price); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.log.Info("price upserted", slog.String("price_id", price.ID), slog.String("product_id", price.ProductID))
	return nil
}

func projectProduct(p paymentprovider.Product) models.Product {
	product := models.Product{
		ID:          p.ID,
		Active:      p.Active,
		Name:        p.Name,
		Description: optionalString(p.Description),
		Metadata:    p.Metadata,
	}
	if len(p.Images) > 0 {
		product.Image = optionalString(p.Images[0])
	}
	return product
}

func projectPrice(p paymentprovider.Price) models.Price {
	price := models.Price{
		ID:          p.ID,
		ProductID:   p.ProductID,
		Active:      p.Active,
		Currency:    p.Currency,
		Description: optionalString(p.Nickname),
		Type:        models.PriceType(p.Type),
		UnitAmount:  p.UnitAmount,
		Metadata:    p.Metadata,
	}
	if p.Recurring != nil {
		price.Interval = optionalString(p.Recurring.Interval)
		price.IntervalCount = optionalInt64(p.Recurring.IntervalCount)
		price.TrialPeriodDays = optionalInt64(p.Recurring.TrialPeriodDays)
	}
	return price
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
