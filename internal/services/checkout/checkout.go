// Package checkout создаёт сессии оформления подписки и ссылки на портал управления подпиской.
// Перед обращением к провайдеру пользователь связывается с клиентом провайдера.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
)

// CustomerResolver находит или создаёт клиента провайдера для пользователя.
type CustomerResolver interface {
	CreateOrRetrieveCustomer(ctx context.Context, userID, email string) (string, error)
}

// Provider: операции провайдера, нужные для оформления.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutSessionParams) (*paymentprovider.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// Request: запрос на оформление подписки.
type Request struct {
	PriceID  string            `json:"price_id" validate:"required,startswith=price_"`
	Quantity int64             `json:"quantity" validate:"min=0,max=100"`
	Metadata map[string]string `json:"metadata"`
}

// Service оформляет подписки.
type Service struct {
	customers CustomerResolver
	provider  Provider
	siteURL   string
	log       *slog.Logger
}

// New создаёт Service. siteURL: нормализованный адрес сайта с завершающим слешем.
func New(customers CustomerResolver, provider Provider, siteURL string, log *slog.Logger) *Service {
	return &Service{
		customers: customers,
		provider:  provider,
		siteURL:   siteURL,
		log:       log,
	}
}

// SuccessURL: страница, на которую провайдер возвращает после оплаты.
func (s *Service) SuccessURL() string {
	return s.siteURL + "account"
}

// CancelURL: страница, на которую провайдер возвращает при отмене оформления.
func (s *Service) CancelURL() string {
	return s.siteURL
}

// CreateCustomer связывает пользователя с клиентом провайдера и возвращает ID клиента.
func (s *Service) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	const op = "checkout.CreateCustomer"
	customerID, err := s.customers.CreateOrRetrieveCustomer(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return customerID, nil
}

// CreateCheckoutSession создаёт сессию оформления подписки на цену из запроса.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, email string, req Request) (*paymentprovider.CheckoutSession, error) {
	const op = "checkout.CreateCheckoutSession"
	customerID, err := s.customers.CreateOrRetrieveCustomer(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CheckoutSessionParams{
		CustomerID: customerID,
		UserID:     userID,
		PriceID:    req.PriceID,
		Quantity:   req.Quantity,
		SuccessURL: s.SuccessURL(),
		CancelURL:  s.CancelURL(),
		Metadata:   req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("checkout session created",
		slog.String("user_id", userID),
		slog.String("price_id", req.PriceID),
		slog.String("session_id", session.ID),
	)
	return session, nil
}

// CreatePortalLink возвращает ссылку на портал управления подпиской.
func (s *Service) CreatePortalLink(ctx context.Context, userID, email string) (string, error) {
	const op = "checkout.CreatePortalLink"
	customerID, err := s.customers.CreateOrRetrieveCustomer(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	url, err := s.provider.CreatePortalSession(ctx, customerID, s.SuccessURL())
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}
