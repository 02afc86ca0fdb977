// Package checkoutsession реализует HTTP-обработчик создания сессии оформления подписки.
package checkoutsession

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/music-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-billing/internal/http/response"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/services/checkout"
)

// Service создаёт сессию оформления.
type Service interface {
	CreateCheckoutSession(ctx context.Context, userID, email string, req checkout.Request) (*paymentprovider.CheckoutSession, error)
}

// Handler обрабатывает POST /checkout-sessions.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать сессию оформления подписки
// @Description Связывает пользователя с клиентом Stripe и создаёт Checkout Session на выбранную цену.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body checkout.Request true "Цена и количество"
// @Success 200 {object} response.Response "session_id и url"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка провайдера"
// @Router /checkout-sessions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkoutsession"
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

	var req checkout.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	session, err := h.service.CreateCheckoutSession(r.Context(), userID, email, req)
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create checkout session"))
		return
	}

	log.Info("checkout session created", slog.String("session_id", session.ID))
	render.JSON(w, r, response.OKWithData(session))
}
