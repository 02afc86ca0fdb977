package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/music-billing/internal/models"
)

// UpsertProduct вставляет продукт или полностью заменяет существующий с тем же ID.
func (s *Storage) UpsertProduct(ctx context.Context, p models.Product) error {
	const op = "storage.UpsertProduct"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	metadata, err := marshalJSON(p.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO products (id, active, name, description, image, metadata)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (id) DO UPDATE SET
			      active = EXCLUDED.active,
			      name = EXCLUDED.name,
			      description = EXCLUDED.description,
			      image = EXCLUDED.image,
			      metadata = EXCLUDED.metadata`
	_, err = s.DB.ExecContext(ctx, query, p.ID, p.Active, p.Name, p.Description, p.Image, metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertPrice вставляет цену или полностью заменяет существующую с тем же ID.
func (s *Storage) UpsertPrice(ctx context.Context, p models.Price) error {
	const op = "storage.UpsertPrice"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	metadata, err := marshalJSON(p.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO prices (id, product_id, active, description, unit_amount, currency,
			      type, interval, interval_count, trial_period_days, metadata)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  ON CONFLICT (id) DO UPDATE SET
			      product_id = EXCLUDED.product_id,
			      active = EXCLUDED.active,
			      description = EXCLUDED.description,
			      unit_amount = EXCLUDED.unit_amount,
			      currency = EXCLUDED.currency,
			      type = EXCLUDED.type,
			      interval = EXCLUDED.interval,
			      interval_count = EXCLUDED.interval_count,
			      trial_period_days = EXCLUDED.trial_period_days,
			      metadata = EXCLUDED.metadata`
	_, err = s.DB.ExecContext(ctx, query,
		p.ID, p.ProductID, p.Active, p.Description, p.UnitAmount, p.Currency,
		string(p.Type), p.Interval, p.IntervalCount, p.TrialPeriodDays, metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetProduct возвращает продукт по ID.
func (s *Storage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	const op = "storage.GetProduct"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, active, name, description, image, metadata FROM products WHERE id = $1`
	p, err := scanProduct(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetPrice возвращает цену по ID.
func (s *Storage) GetPrice(ctx context.Context, id string) (*models.Price, error) {
	const op = "storage.GetPrice"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, product_id, active, description, unit_amount, currency, type,
			      interval, interval_count, trial_period_days, metadata
			  FROM prices WHERE id = $1`
	p, err := scanPrice(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListActiveProductsWithPrices возвращает активные продукты с их активными ценами,
// упорядоченные по имени продукта и сумме цены.
func (s *Storage) ListActiveProductsWithPrices(ctx context.Context) ([]models.ProductWithPrices, error) {
	const op = "storage.ListActiveProductsWithPrices"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT p.id, p.active, p.name, p.description, p.image, p.metadata,
			      pr.id, pr.product_id, pr.active, pr.description, pr.unit_amount, pr.currency, pr.type,
			      pr.interval, pr.interval_count, pr.trial_period_days, pr.metadata
			  FROM products p
			  LEFT JOIN prices pr ON pr.product_id = p.id AND pr.active = true
			  WHERE p.active = true
			  ORDER BY p.name, p.id, pr.unit_amount NULLS LAST`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ProductWithPrices
	for rows.Next() {
		var (
			p                                   models.Product
			pDescription, pImage                sql.NullString
			pMetadata                           []byte
			prID, prProductID, prCurrency, prTy sql.NullString
			prActive                            sql.NullBool
			prDescription, prInterval           sql.NullString
			prUnitAmount, prCount, prTrial      sql.NullInt64
			prMetadata                          []byte
		)
		if err := rows.Scan(&p.ID, &p.Active, &p.Name, &pDescription, &pImage, &pMetadata,
			&prID, &prProductID, &prActive, &prDescription, &prUnitAmount, &prCurrency, &prTy,
			&prInterval, &prCount, &prTrial, &prMetadata); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if len(result) == 0 || result[len(result)-1].ID != p.ID {
			p.Description = nullString(pDescription)
			p.Image = nullString(pImage)
			if err := unmarshalMetadata(pMetadata, &p.Metadata); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			result = append(result, models.ProductWithPrices{Product: p, Prices: []models.Price{}})
		}
		if !prID.Valid {
			continue
		}

		price := models.Price{
			ID:              prID.String,
			ProductID:       prProductID.String,
			Active:          prActive.Bool,
			Currency:        prCurrency.String,
			Description:     nullString(prDescription),
			Type:            models.PriceType(prTy.String),
			UnitAmount:      nullInt64(prUnitAmount),
			Interval:        nullString(prInterval),
			IntervalCount:   nullInt64(prCount),
			TrialPeriodDays: nullInt64(prTrial),
		}
		if err := unmarshalMetadata(prMetadata, &price.Metadata); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		last := &result[len(result)-1]
		last.Prices = append(last.Prices, price)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p                   models.Product
		description, image  sql.NullString
		metadata            []byte
	)
	if err := row.Scan(&p.ID, &p.Active, &p.Name, &description, &image, &metadata); err != nil {
		return nil, err
	}
	p.Description = nullString(description)
	p.Image = nullString(image)
	if err := unmarshalMetadata(metadata, &p.Metadata); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPrice(row rowScanner) (*models.Price, error) {
	var (
		p                        models.Price
		typ                      string
		description, interval    sql.NullString
		unitAmount, count, trial sql.NullInt64
		metadata                 []byte
	)
	if err := row.Scan(&p.ID, &p.ProductID, &p.Active, &description, &unitAmount, &p.Currency, &typ,
		&interval, &count, &trial, &metadata); err != nil {
		return nil, err
	}
	p.Type = models.PriceType(typ)
	p.Description = nullString(description)
	p.UnitAmount = nullInt64(unitAmount)
	p.Interval = nullString(interval)
	p.IntervalCount = nullInt64(count)
	p.TrialPeriodDays = nullInt64(trial)
	if err := unmarshalMetadata(metadata, &p.Metadata); err != nil {
		return nil, err
	}
	return &p, nil
}

func unmarshalMetadata(raw []byte, dst *models.Metadata) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
