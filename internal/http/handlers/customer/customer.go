// Package customer реализует HTTP-обработчик связывания пользователя с клиентом Stripe.
package customer

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

// Service находит или создаёт клиента провайдера.
type Service interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
}

// Handler обрабатывает POST /customers.
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
// @Summary Клиент Stripe текущего пользователя
// @Description Возвращает ID клиента Stripe, создавая его при первом обращении.
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "customer_id"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка провайдера или хранилища"
// @Router /customers [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.customer"
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

	customerID, err := h.service.CreateCustomer(r.Context(), userID, email)
	if err != nil {
		log.Error("failed to resolve customer", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not resolve customer"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]string{"customer_id": customerID}))
}
