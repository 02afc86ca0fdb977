// Package portallink реализует HTTP-обработчик ссылки на портал управления подпиской Stripe.
package portallink

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-billing/internal/http/response"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
)

// Service создаёт ссылку на портал.
type Service interface {
	CreatePortalLink(ctx context.Context, userID, email string) (string, error)
}

// Handler обрабатывает POST /portal-links.
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
// @Summary Ссылка на портал управления подпиской
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "url портала"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка провайдера"
// @Router /portal-links [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.portallink"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, email, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	url, err := h.service.CreatePortalLink(r.Context(), userID, email)
	if err != nil {
		log.Error("failed to create portal link", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create portal link"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]string{"url": url}))
}
