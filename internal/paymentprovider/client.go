// Package paymentprovider: адаптер к API Stripe. Переводит объекты Stripe в
// независимые от SDK структуры, с которыми работает сверка подписок.
package paymentprovider

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// Client: клиент Stripe с собственным ключом, без глобального состояния SDK.
type Client struct {
	api *client.API
}

// NewClient создаёт клиент Stripe по секретному ключу.
func NewClient(secretKey string) *Client {
	return &Client{api: client.New(secretKey, nil)}
}

// CreateCustomer создаёт клиента у провайдера. Идентификатор пользователя кладётся в metadata,
// чтобы связку можно было восстановить со стороны провайдера.
func (c *Client) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	const op = "paymentprovider.CreateCustomer"
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddMetadata(UserIDMetadataKey, userID)
	if email != "" {
		params.Email = stripe.String(email)
	}
	cust, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return cust.ID, nil
}

// DeleteCustomer удаляет клиента у провайдера.
func (c *Client) DeleteCustomer(ctx context.Context, customerID string) error {
	const op = "paymentprovider.DeleteCustomer"
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := c.api.Customers.Del(customerID, params); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateCustomerBillingDetails записывает имя, телефон и адрес в клиента провайдера.
func (c *Client) UpdateCustomerBillingDetails(ctx context.Context, customerID string, details BillingDetails) error {
	const op = "paymentprovider.UpdateCustomerBillingDetails"
	params := &stripe.CustomerParams{
		Name:  stripe.String(details.Name),
		Phone: stripe.String(details.Phone),
	}
	params.Context = ctx
	if details.Address != nil {
		params.Address = &stripe.AddressParams{
			City:       stripe.String(details.Address.City),
			Country:    stripe.String(details.Address.Country),
			Line1:      stripe.String(details.Address.Line1),
			Line2:      stripe.String(details.Address.Line2),
			PostalCode: stripe.String(details.Address.PostalCode),
			State:      stripe.String(details.Address.State),
		}
	}
	if _, err := c.api.Customers.Update(customerID, params); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RetrieveSubscription запрашивает актуальное состояние подписки у провайдера
// вместе с раскрытым способом оплаты по умолчанию.
func (c *Client) RetrieveSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	const op = "paymentprovider.RetrieveSubscription"
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("default_payment_method")
	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res, err := SubscriptionFromStripe(sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// CreateCheckoutSession создаёт сессию оформления подписки на одну цену.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"
	quantity := p.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	params := &stripe.CheckoutSessionParams{
		Customer:                 stripe.String(p.CustomerID),
		ClientReferenceID:        stripe.String(p.UserID),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		AllowPromotionCodes:      stripe.Bool(true),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(quantity),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// CreatePortalSession создаёт сессию портала управления подпиской и возвращает её URL.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "paymentprovider.CreatePortalSession"
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.URL, nil
}
