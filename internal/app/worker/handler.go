package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/music-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/metrics"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/services/billing"
)

// Reconciler применяет событие провайдера к хранилищу.
type Reconciler interface {
	Handle(ctx context.Context, ev paymentprovider.Event) error
}

// CatalogInvalidator сбрасывает закешированную витрину.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Ledger отмечает обработку событий в журнале вебхуков.
type Ledger interface {
	MarkWebhookProcessed(ctx context.Context, id, errMsg string) error
}

// EventHandler обрабатывает сообщения очереди событий биллинга.
type EventHandler struct {
	reconciler Reconciler
	catalog    CatalogInvalidator
	ledger     Ledger
	log        *slog.Logger
}

// NewEventHandler создаёт EventHandler.
func NewEventHandler(reconciler Reconciler, catalog CatalogInvalidator, ledger Ledger, log *slog.Logger) *EventHandler {
	return &EventHandler{
		reconciler: reconciler,
		catalog:    catalog,
		ledger:     ledger,
		log:        log,
	}
}

// Handle обрабатывает тело одного сообщения.
//
// Нераспознанное сообщение и постоянные ошибки сверки возвращаются обёрнутыми в
// rabbitmq.Discard, и сообщение уходит в очередь недоставленных. Остальные ошибки
// возвращают сообщение в очередь.
func (h *EventHandler) Handle(ctx context.Context, body []byte) error {
	const op = "worker.Handle"

	var ev paymentprovider.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.EventsProcessed.WithLabelValues("unknown", metrics.ResultDiscarded).Inc()
		return rabbitmq.Discard(fmt.Errorf("%s: decode event: %w", op, err))
	}
	log := h.log.With(
		slog.String("op", op),
		slog.String("event_id", ev.ID),
		slog.String("kind", string(ev.Kind)),
	)

	err := h.reconciler.Handle(ctx, ev)
	if err != nil {
		h.markProcessed(ctx, log, ev.ID, err.Error())
		if billing.IsPermanent(err) {
			log.Error("event needs manual reconciliation", sl.Err(err))
			metrics.EventsProcessed.WithLabelValues(string(ev.Kind), metrics.ResultDiscarded).Inc()
			return rabbitmq.Discard(fmt.Errorf("%s: %w", op, err))
		}
		metrics.EventsProcessed.WithLabelValues(string(ev.Kind), metrics.ResultRetry).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	if ev.Kind == paymentprovider.EventProductChanged || ev.Kind == paymentprovider.EventPriceChanged {
		if err := h.catalog.Invalidate(ctx); err != nil {
			log.Warn("failed to invalidate catalog cache", sl.Err(err))
		}
	}
	h.markProcessed(ctx, log, ev.ID, "")
	metrics.EventsProcessed.WithLabelValues(string(ev.Kind), metrics.ResultOK).Inc()
	log.Info("event reconciled")
	return nil
}

func (h *EventHandler) markProcessed(ctx context.Context, log *slog.Logger, id, errMsg string) {
	if id == "" {
		return
	}
	if err := h.ledger.MarkWebhookProcessed(ctx, id, errMsg); err != nil {
		log.Warn("failed to update webhook ledger", sl.Err(err))
	}
}
