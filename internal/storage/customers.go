package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// GetCustomerByUserID возвращает ID клиента провайдера для пользователя.
// Строка без stripe_customer_id считается отсутствующей.
func (s *Storage) GetCustomerByUserID(ctx context.Context, userID string) (string, error) {
	const op = "storage.GetCustomerByUserID"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var customerID sql.NullString
	query := `SELECT stripe_customer_id FROM customers WHERE id = $1`
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !customerID.Valid || customerID.String == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return customerID.String, nil
}

// GetUserIDByCustomerID возвращает пользователя, с которым связан клиент провайдера.
func (s *Storage) GetUserIDByCustomerID(ctx context.Context, customerID string) (string, error) {
	const op = "storage.GetUserIDByCustomerID"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var userID string
	query := `SELECT id FROM customers WHERE stripe_customer_id = $1`
	err := s.DB.QueryRowContext(ctx, query, customerID).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return userID, nil
}

// AttachCustomer связывает пользователя с клиентом провайдера, только если
// у пользователя ещё нет связки. Если её успел записать конкурент, возвращает ErrAlreadyExists.
func (s *Storage) AttachCustomer(ctx context.Context, userID, customerID string) error {
	const op = "storage.AttachCustomer"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO customers (id, stripe_customer_id)
			  VALUES ($1, $2)
			  ON CONFLICT (id) DO UPDATE SET stripe_customer_id = EXCLUDED.stripe_customer_id
			  WHERE customers.stripe_customer_id IS NULL`
	res, err := s.DB.ExecContext(ctx, query, userID, customerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	return nil
}
