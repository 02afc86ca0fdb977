package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/music-billing/internal/models"
)

// CreateIntent сохраняет намерение в статусе pending и возвращает его ID. Если pending-намерение
// того же вида для того же пользователя, клиента и способа оплаты уже есть, обновляется
// его payload и возвращается его ID.
func (s *Storage) CreateIntent(ctx context.Context, intent models.Intent) (int64, error) {
	const op = "storage.CreateIntent"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	payload := "{}"
	if len(intent.Payload) > 0 {
		payload = string(intent.Payload)
	}

	var id int64
	query := `INSERT INTO billing_intents (kind, user_id, customer_id, payment_method_id, payload, status)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (kind, user_id, customer_id, payment_method_id) WHERE status = 'pending'
			  DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
			  RETURNING id`
	err := s.DB.QueryRowContext(ctx, query,
		string(intent.Kind), intent.UserID, intent.CustomerID, intent.PaymentMethodID,
		payload, string(models.IntentPending)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CompleteIntent переводит намерение в статус done.
func (s *Storage) CompleteIntent(ctx context.Context, id int64) error {
	const op = "storage.CompleteIntent"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE billing_intents SET status = $1, last_error = '', updated_at = NOW() WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, string(models.IntentDone), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// FailIntent увеличивает счётчик попыток и запоминает последнюю ошибку.
func (s *Storage) FailIntent(ctx context.Context, id int64, errMsg string) error {
	const op = "storage.FailIntent"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE billing_intents
			  SET attempts = attempts + 1, last_error = $1, updated_at = NOW()
			  WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, errMsg, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ListStaleIntents возвращает pending-намерения, не обновлявшиеся дольше olderThan,
// с числом попыток меньше maxAttempts, от старых к новым.
func (s *Storage) ListStaleIntents(ctx context.Context, olderThan time.Duration, maxAttempts, limit int) ([]models.Intent, error) {
	const op = "storage.ListStaleIntents"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)
	query := `SELECT id, kind, user_id, customer_id, payment_method_id, payload, status, attempts, last_error,
			  created_at, updated_at
			  FROM billing_intents
			  WHERE status = $1 AND updated_at < $2 AND attempts < $3
			  ORDER BY updated_at
			  LIMIT $4`
	rows, err := s.DB.QueryContext(ctx, query, string(models.IntentPending), cutoff, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var intents []models.Intent
	for rows.Next() {
		var (
			in           models.Intent
			kind, status string
			payload      []byte
		)
		if err := rows.Scan(&in.ID, &kind, &in.UserID, &in.CustomerID, &in.PaymentMethodID, &payload, &status,
			&in.Attempts, &in.LastError, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		in.Kind = models.IntentKind(kind)
		in.Status = models.IntentStatus(status)
		in.Payload = payload
		intents = append(intents, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return intents, nil
}

// CountExhaustedIntents возвращает число pending-намерений, исчерпавших попытки.
func (s *Storage) CountExhaustedIntents(ctx context.Context, maxAttempts int) (int, error) {
	const op = "storage.CountExhaustedIntents"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	var n int
	query := `SELECT COUNT(*) FROM billing_intents WHERE status = $1 AND attempts >= $2`
	if err := s.DB.QueryRowContext(ctx, query, string(models.IntentPending), maxAttempts).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
