// Package billing реализует сверку состояния платёжного провайдера с хранилищем:
// каталог продуктов и цен, связку пользователей с клиентами провайдера,
// подписки и платёжные данные пользователей.
package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
)

var (
	// ErrCustomerNotMapped: для клиента провайдера нет связки с пользователем.
	ErrCustomerNotMapped = errors.New("customer is not mapped to a user")
	// ErrNoSubscriptionItems: у подписки провайдера нет ни одной позиции.
	ErrNoSubscriptionItems = errors.New("subscription has no items")
	// ErrMalformedEvent: событие не содержит данных, нужных для его операции.
	ErrMalformedEvent = errors.New("malformed billing event")
)

// IsPermanent сообщает, что повторная обработка не исправит ошибку.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrCustomerNotMapped) ||
		errors.Is(err, ErrNoSubscriptionItems) ||
		errors.Is(err, ErrMalformedEvent)
}

// Store: хранилище, в которое проецируется состояние провайдера.
type Store interface {
	UpsertProduct(ctx context.Context, p models.Product) error
	UpsertPrice(ctx context.Context, p models.Price) error
	GetCustomerByUserID(ctx context.Context, userID string) (string, error)
	GetUserIDByCustomerID(ctx context.Context, customerID string) (string, error)
	AttachCustomer(ctx context.Context, userID, customerID string) error
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	UpdateUserBilling(ctx context.Context, userID string, profile models.BillingProfile) (int64, error)
	CreateIntent(ctx context.Context, intent models.Intent) (int64, error)
	CompleteIntent(ctx context.Context, id int64) error
	FailIntent(ctx context.Context, id int64, errMsg string) error
}

// Provider: операции платёжного провайдера, нужные для сверки.
type Provider interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	UpdateCustomerBillingDetails(ctx context.Context, customerID string, details paymentprovider.BillingDetails) error
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
}

// Reconciler выполняет операции сверки. Внутренних повторов нет:
// ошибки возвращаются вызывающему слою, который решает, нужна ли повторная доставка.
type Reconciler struct {
	store    Store
	provider Provider
	log      *slog.Logger
}

// New создаёт Reconciler с переданными хранилищем и клиентом провайдера.
func New(store Store, provider Provider, log *slog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		provider: provider,
		log:      log,
	}
}
