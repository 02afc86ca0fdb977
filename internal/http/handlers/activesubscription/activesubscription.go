// Package activesubscription реализует HTTP-обработчик действующей подписки текущего пользователя.
package activesubscription

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-billing/internal/http/response"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/storage"
)

// Service читает действующую подписку пользователя.
type Service interface {
	GetActiveSubscription(ctx context.Context, userID string) (*models.SubscriptionDetails, error)
}

// Handler обрабатывает GET /subscription.
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
// @Summary Действующая подписка
// @Description Подписка пользователя в статусе trialing или active вместе с ценой и продуктом.
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Подписка"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Действующей подписки нет"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.activesubscription"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, _, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	sub, err := h.service.GetActiveSubscription(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("no active subscription"))
		return
	}
	if err != nil {
		log.Error("failed to get subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get subscription"))
		return
	}

	render.JSON(w, r, response.OKWithData(sub))
}
