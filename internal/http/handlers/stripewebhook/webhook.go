// Package stripewebhook реализует HTTP-обработчик вебхуков Stripe.
//
// Обработчик читает тело запроса, передаёт его вместе с заголовком Stripe-Signature
// сервису приёма и отвечает 2xx только после того, как событие записано и поставлено в очередь.
// Иначе Stripe повторит доставку.
package stripewebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-billing/internal/http/response"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/services/webhook"
)

const maxBodyBytes = 65536

// Service принимает тело вебхука.
type Service interface {
	Receive(ctx context.Context, payload []byte, signature string) (webhook.Result, error)
}

// Handler обрабатывает POST /webhooks/stripe.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Description Принимает событие Stripe, проверяет подпись и ставит событие в очередь сверки.
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись Stripe"
// @Success 200 {object} response.Response "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Failure 500 {object} response.ErrorResponse "Событие не удалось записать или поставить в очередь"
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stripewebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	result, err := h.service.Receive(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, paymentprovider.ErrInvalidSignature) {
		log.Warn("webhook signature verification failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}
	if err != nil {
		log.Error("failed to accept webhook", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("webhook handler failed"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"received": true,
		"result":   result,
	}))
}
