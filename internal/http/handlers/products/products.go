// Package products реализует HTTP-обработчик витрины активных продуктов с ценами.
package products

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-billing/internal/http/response"
	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
	"github.com/magabrotheeeer/music-billing/internal/models"
)

// Service читает витрину.
type Service interface {
	ListActiveProducts(ctx context.Context) ([]models.ProductWithPrices, error)
}

// Handler обрабатывает GET /products.
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
// @Summary Активные продукты
// @Description Активные продукты с активными ценами для окна оформления подписки.
// @Tags Catalog
// @Produce  json
// @Success 200 {object} response.Response "Список продуктов"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /products [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.products"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	products, err := h.service.ListActiveProducts(r.Context())
	if err != nil {
		log.Error("failed to list products", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list products"))
		return
	}
	if products == nil {
		products = []models.ProductWithPrices{}
	}

	render.JSON(w, r, response.OKWithData(products))
}
