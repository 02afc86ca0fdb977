// Package webhook принимает вебхуки провайдера: проверяет подпись, записывает событие
// в журнал и публикует его в очередь воркера сверки.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/music-billing/internal/metrics"
	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
)

// Result: итог приёма вебхука.
type Result string

const (
	// ResultQueued: событие опубликовано в очередь.
	ResultQueued Result = "queued"
	// ResultDuplicate: событие уже обработано, повторная доставка пропущена.
	ResultDuplicate Result = "duplicate"
	// ResultIgnored: тип события не участвует в сверке.
	ResultIgnored Result = "ignored"
)

// Parser проверяет подпись и разбирает тело вебхука.
type Parser interface {
	Parse(payload []byte, signature string) (*paymentprovider.Event, error)
}

// Ledger: журнал входящих событий.
type Ledger interface {
	RecordWebhookEvent(ctx context.Context, ev models.WebhookEvent) (bool, *models.WebhookEvent, error)
}

// Publisher публикует событие в очередь и ждёт подтверждения брокера.
type Publisher interface {
	Publish(ctx context.Context, message any) error
}

// Service принимает вебхуки.
type Service struct {
	parser    Parser
	ledger    Ledger
	publisher Publisher
	log       *slog.Logger
}

// New создаёт Service.
func New(parser Parser, ledger Ledger, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		parser:    parser,
		ledger:    ledger,
		publisher: publisher,
		log:       log,
	}
}

// Receive обрабатывает тело вебхука с заголовком Stripe-Signature.
//
// Ошибка подписи возвращается с paymentprovider.ErrInvalidSignature. Повторная доставка
// события, которое ещё не обработано, публикуется снова: прошлая публикация могла не дойти.
// ResultQueued возвращается только после подтверждения публикации брокером.
func (s *Service) Receive(ctx context.Context, payload []byte, signature string) (Result, error) {
	const op = "webhook.Receive"

	ev, err := s.parser.Parse(payload, signature)
	if errors.Is(err, paymentprovider.ErrUnhandledEvent) {
		s.log.Debug("unhandled webhook event", slog.String("id", ev.ID), slog.String("type", ev.Type))
		metrics.WebhooksReceived.WithLabelValues(ev.Type, metrics.ResultIgnored).Inc()
		return ResultIgnored, nil
	}
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("unknown", metrics.ResultFailed).Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}

	inserted, existing, err := s.ledger.RecordWebhookEvent(ctx, models.WebhookEvent{
		ID:      ev.ID,
		Type:    ev.Type,
		Payload: payload,
	})
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues(ev.Type, metrics.ResultFailed).Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !inserted && existing != nil && existing.ProcessedAt != nil {
		s.log.Info("duplicate webhook event skipped", slog.String("id", ev.ID), slog.String("type", ev.Type))
		metrics.WebhooksReceived.WithLabelValues(ev.Type, metrics.ResultDuplicate).Inc()
		return ResultDuplicate, nil
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		metrics.WebhooksReceived.WithLabelValues(ev.Type, metrics.ResultFailed).Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("webhook event queued",
		slog.String("id", ev.ID),
		slog.String("type", ev.Type),
		slog.String("kind", string(ev.Kind)),
	)
	metrics.WebhooksReceived.WithLabelValues(ev.Type, metrics.ResultOK).Inc()
	return ResultQueued, nil
}
