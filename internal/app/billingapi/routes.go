// Package billingapi собирает HTTP API биллинга: вебхук Stripe, оформление подписки и витрину.
package billingapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/music-billing/internal/config"
	"github.com/magabrotheeeer/music-billing/internal/http/handlers/activesubscription"
	"github.com/magabrotheeeer/music-billing/internal/http/handlers/checkoutsession"
	"github.com/magabrotheeeer/music-billing/internal/http/handlers/customer"
	"github.com/magabrotheeeer/music-billing/internal/http/handlers/health"
	"github.com/magabrotheeeer/music-billing/internal/http/handlers/portallink"
	"github.com/magabrotheeeer/music-billing/internal/http/handlers/products"
	"github.com/magabrotheeeer/music-billing/internal/http/handlers/stripewebhook"
	"github.com/magabrotheeeer/music-billing/internal/http/middlewarectx"
)

// CheckoutService: оформление подписки, портал и связка с клиентом провайдера.
type CheckoutService interface {
	checkoutsession.Service
	portallink.Service
	customer.Service
}

// CatalogService: витрина и действующая подписка.
type CatalogService interface {
	products.Service
	activesubscription.Service
}

// Services: зависимости обработчиков.
type Services struct {
	Webhook  stripewebhook.Service
	Checkout CheckoutService
	Catalog  CatalogService
	Tokens   middlewarectx.TokenParser
	Health   health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.HTTPServer, svc Services) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/webhooks/stripe", stripewebhook.New(logger, svc.Webhook).ServeHTTP)
		r.Get("/health", health.New(logger, svc.Health).ServeHTTP)
		r.Get("/products", products.New(logger, svc.Catalog).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Tokens, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimit, cfg.RateBurst))
			r.Post("/checkout-sessions", checkoutsession.New(logger, svc.Checkout).ServeHTTP)
			r.Post("/portal-links", portallink.New(logger, svc.Checkout).ServeHTTP)
			r.Post("/customers", customer.New(logger, svc.Checkout).ServeHTTP)
			r.Get("/subscription", activesubscription.New(logger, svc.Catalog).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
