package paymentprovider

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrInvalidSignature: подпись вебхука не прошла проверку.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrUnhandledEvent: событие подписано корректно, но сверка его не обрабатывает.
	ErrUnhandledEvent = errors.New("unhandled webhook event")
)

// EventKind: операция сверки, которую запускает событие.
type EventKind string

const (
	EventProductChanged      EventKind = "product_changed"
	EventPriceChanged        EventKind = "price_changed"
	EventSubscriptionChanged EventKind = "subscription_changed"
	EventCustomerResolution  EventKind = "customer_resolution"
)

// Event: событие провайдера, сведённое к входу одной из операций сверки.
// Передаётся через очередь в JSON.
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Kind           EventKind `json:"kind"`
	Product        *Product  `json:"product,omitempty"`
	Price          *Price    `json:"price,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	CustomerID     string    `json:"customer_id,omitempty"`
	CreateAction   bool      `json:"create_action,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	Email          string    `json:"email,omitempty"`
}

// WebhookParser проверяет подпись вебхуков Stripe и разбирает их в Event.
type WebhookParser struct {
	secret string
}

// NewWebhookParser создаёт парсер с секретом подписи эндпоинта.
func NewWebhookParser(secret string) *WebhookParser {
	return &WebhookParser{secret: secret}
}

// Parse проверяет заголовок Stripe-Signature и переводит событие в Event.
// Для необрабатываемых типов возвращает Event с заполненными ID и Type и ErrUnhandledEvent.
func (p *WebhookParser) Parse(payload []byte, signature string) (*Event, error) {
	const op = "paymentprovider.WebhookParser.Parse"
	se, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidSignature, err)
	}
	ev, err := FromStripeEvent(se)
	if err != nil {
		if errors.Is(err, ErrUnhandledEvent) {
			return ev, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ev, nil
}

// FromStripeEvent переводит событие Stripe в Event.
func FromStripeEvent(se stripe.Event) (*Event, error) {
	ev := &Event{ID: se.ID, Type: string(se.Type)}
	if se.Data == nil {
		return ev, fmt.Errorf("event %s has no data", se.ID)
	}

	switch se.Type {
	case stripe.EventTypeProductCreated, stripe.EventTypeProductUpdated:
		var p stripe.Product
		if err := json.Unmarshal(se.Data.Raw, &p); err != nil {
			return ev, fmt.Errorf("decode product: %w", err)
		}
		ev.Kind = EventProductChanged
		ev.Product = ProductFromStripe(&p)

	case stripe.EventTypePriceCreated, stripe.EventTypePriceUpdated:
		var p stripe.Price
		if err := json.Unmarshal(se.Data.Raw, &p); err != nil {
			return ev, fmt.Errorf("decode price: %w", err)
		}
		ev.Kind = EventPriceChanged
		ev.Price = PriceFromStripe(&p)

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var s stripe.Subscription
		if err := json.Unmarshal(se.Data.Raw, &s); err != nil {
			return ev, fmt.Errorf("decode subscription: %w", err)
		}
		ev.Kind = EventSubscriptionChanged
		ev.SubscriptionID = s.ID
		if s.Customer != nil {
			ev.CustomerID = s.Customer.ID
		}
		ev.CreateAction = se.Type == stripe.EventTypeCustomerSubscriptionCreated

	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(se.Data.Raw, &cs); err != nil {
			return ev, fmt.Errorf("decode checkout session: %w", err)
		}
		if cs.Mode != stripe.CheckoutSessionModeSubscription || cs.Subscription == nil || cs.Customer == nil {
			return ev, ErrUnhandledEvent
		}
		ev.Kind = EventSubscriptionChanged
		ev.SubscriptionID = cs.Subscription.ID
		ev.CustomerID = cs.Customer.ID
		ev.CreateAction = true

	default:
		return ev, ErrUnhandledEvent
	}
	return ev, nil
}
