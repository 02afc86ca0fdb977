package billingapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/music-billing/internal/config"
	"github.com/magabrotheeeer/music-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/services/checkout"
	"github.com/magabrotheeeer/music-billing/internal/services/webhook"
)

type WebhookMock struct{ mock.Mock }

func (m *WebhookMock) Receive(ctx context.Context, payload []byte, signature string) (webhook.Result, error) {
	args := m.Called(ctx, payload, signature)
	return args.Get(0).(webhook.Result), args.Error(1)
}

type CheckoutMock struct{ mock.Mock }

func (m *CheckoutMock) CreateCheckoutSession(ctx context.Context, userID, email string, req checkout.Request) (*paymentprovider.CheckoutSession, error) {
	args := m.Called(ctx, userID, email, req)
	s, _ := args.Get(0).(*paymentprovider.CheckoutSession)
	return s, args.Error(1)
}

func (m *CheckoutMock) CreatePortalLink(ctx context.Context, userID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}

func (m *CheckoutMock) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}

type CatalogMock struct{ mock.Mock }

func (m *CatalogMock) ListActiveProducts(ctx context.Context) ([]models.ProductWithPrices, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]models.ProductWithPrices)
	return products, args.Error(1)
}

func (m *CatalogMock) GetActiveSubscription(ctx context.Context, userID string) (*models.SubscriptionDetails, error) {
	args := m.Called(ctx, userID)
	sub, _ := args.Get(0).(*models.SubscriptionDetails)
	return sub, args.Error(1)
}

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRegisterRoutes(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)
	token, err := maker.GenerateToken("user-1", "listener@example.com")
	require.NoError(t, err)

	wh := new(WebhookMock)
	wh.On("Receive", mock.Anything, mock.Anything, "sig").Return(webhook.ResultQueued, nil)
	co := new(CheckoutMock)
	co.On("CreateCustomer", mock.Anything, "user-1", "listener@example.com").Return("cus_1", nil)
	co.On("CreatePortalLink", mock.Anything, "user-1", "listener@example.com").Return("https://billing.stripe.com/p/1", nil)
	cat := new(CatalogMock)
	cat.On("ListActiveProducts", mock.Anything).Return([]models.ProductWithPrices{}, nil)
	cat.On("GetActiveSubscription", mock.Anything, "user-1").
		Return(&models.SubscriptionDetails{Subscription: models.Subscription{ID: "sub_1"}}, nil)

	r := chi.NewRouter()
	RegisterRoutes(r, newNoopLogger(), config.HTTPServer{RateLimit: 100, RateBurst: 100}, Services{
		Webhook:  wh,
		Checkout: co,
		Catalog:  cat,
		Tokens:   maker,
		Health:   pingOK{},
	})

	tests := []struct {
		name       string
		method     string
		path       string
		auth       bool
		signature  string
		wantStatus int
	}{
		{name: "webhook is public", method: http.MethodPost, path: "/api/v1/webhooks/stripe", signature: "sig", wantStatus: http.StatusOK},
		{name: "health", method: http.MethodGet, path: "/api/v1/health", wantStatus: http.StatusOK},
		{name: "products are public", method: http.MethodGet, path: "/api/v1/products", wantStatus: http.StatusOK},
		{name: "customers require auth", method: http.MethodPost, path: "/api/v1/customers", wantStatus: http.StatusUnauthorized},
		{name: "customers", method: http.MethodPost, path: "/api/v1/customers", auth: true, wantStatus: http.StatusOK},
		{name: "portal links", method: http.MethodPost, path: "/api/v1/portal-links", auth: true, wantStatus: http.StatusOK},
		{name: "subscription requires auth", method: http.MethodGet, path: "/api/v1/subscription", wantStatus: http.StatusUnauthorized},
		{name: "subscription", method: http.MethodGet, path: "/api/v1/subscription", auth: true, wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/unknown", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			if tt.signature != "" {
				req.Header.Set("Stripe-Signature", tt.signature)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
