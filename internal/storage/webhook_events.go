package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/music-billing/internal/models"
)

// RecordWebhookEvent записывает событие в журнал. Возвращает true, если событие новое;
// для повторной доставки возвращает false и уже сохранённую запись.
func (s *Storage) RecordWebhookEvent(ctx context.Context, ev models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	const op = "storage.RecordWebhookEvent"
	if err := checkCtx(ctx, op); err != nil {
		return false, nil, err
	}

	payload := "{}"
	if len(ev.Payload) > 0 {
		payload = string(ev.Payload)
	}

	query := `INSERT INTO webhook_events (id, type, payload)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, ev.ID, ev.Type, payload)
	if err != nil {
		return false, nil, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		return true, nil, nil
	}

	existing, err := s.GetWebhookEvent(ctx, ev.ID)
	if err != nil {
		return false, nil, fmt.Errorf("%s: %w", op, err)
	}
	return false, existing, nil
}

// GetWebhookEvent возвращает запись журнала по ID события.
func (s *Storage) GetWebhookEvent(ctx context.Context, id string) (*models.WebhookEvent, error) {
	const op = "storage.GetWebhookEvent"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var (
		ev          models.WebhookEvent
		payload     []byte
		processedAt sql.NullTime
	)
	query := `SELECT id, type, payload, received_at, processed_at, processing_error
			  FROM webhook_events WHERE id = $1`
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&ev.ID, &ev.Type, &payload, &ev.ReceivedAt, &processedAt, &ev.ProcessingError)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ev.Payload = payload
	ev.ReceivedAt = ev.ReceivedAt.UTC()
	ev.ProcessedAt = nullTime(processedAt)
	return &ev, nil
}

// MarkWebhookProcessed фиксирует результат обработки события. Пустой errMsg означает успех
// и проставляет processed_at; иначе сохраняется только текст ошибки.
func (s *Storage) MarkWebhookProcessed(ctx context.Context, id, errMsg string) error {
	const op = "storage.MarkWebhookProcessed"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE webhook_events
			  SET processed_at = CASE WHEN $2 = '' THEN NOW() ELSE processed_at END,
			      processing_error = $2
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, errMsg)
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
