package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/music-billing/internal/models"
)

// UpdateUserBilling перезаписывает платёжный адрес и способ оплаты пользователя.
// Возвращает число затронутых строк: 0 означает, что пользователя нет.
func (s *Storage) UpdateUserBilling(ctx context.Context, userID string, profile models.BillingProfile) (int64, error) {
	const op = "storage.UpdateUserBilling"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	address, err := json.Marshal(profile.BillingAddress)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var paymentMethod any
	if len(profile.PaymentMethod) > 0 {
		paymentMethod = string(profile.PaymentMethod)
	}

	query := `UPDATE users SET billing_address = $1, payment_method = $2 WHERE id = $3`
	res, err := s.DB.ExecContext(ctx, query, string(address), paymentMethod, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// GetUserBilling возвращает платёжный профиль пользователя.
func (s *Storage) GetUserBilling(ctx context.Context, userID string) (*models.BillingProfile, error) {
	const op = "storage.GetUserBilling"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var address, paymentMethod []byte
	query := `SELECT billing_address, payment_method FROM users WHERE id = $1`
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&address, &paymentMethod); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profile := &models.BillingProfile{}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &profile.BillingAddress); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if len(paymentMethod) > 0 {
		profile.PaymentMethod = json.RawMessage(paymentMethod)
	}
	return profile, nil
}
