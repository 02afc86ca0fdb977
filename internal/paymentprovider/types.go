package paymentprovider

import (
	"encoding/json"

	"github.com/magabrotheeeer/music-billing/internal/models"
)

// Product: продукт в том виде, в котором его сообщает провайдер.
type Product struct {
	ID          string            `json:"id"`
	Active      bool              `json:"active"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
}

// Recurring: параметры периодической цены.
type Recurring struct {
	Interval        string `json:"interval"`
	IntervalCount   int64  `json:"interval_count"`
	TrialPeriodDays int64  `json:"trial_period_days"`
}

// Price: цена в том виде, в котором её сообщает провайдер.
type Price struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"product_id"`
	Active     bool              `json:"active"`
	Currency   string            `json:"currency"`
	Nickname   string            `json:"nickname"`
	Type       string            `json:"type"`
	UnitAmount *int64            `json:"unit_amount"`
	Recurring  *Recurring        `json:"recurring"`
	Metadata   map[string]string `json:"metadata"`
}

// SubscriptionItem: позиция подписки. Границы текущего периода провайдер отдаёт по позициям.
type SubscriptionItem struct {
	ID                 string `json:"id"`
	PriceID            string `json:"price_id"`
	Quantity           int64  `json:"quantity"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
}

// Subscription: подписка провайдера. Все отметки времени в секундах эпохи, 0 означает отсутствие значения.
type Subscription struct {
	ID                   string             `json:"id"`
	CustomerID           string             `json:"customer_id"`
	Status               string             `json:"status"`
	Metadata             map[string]string  `json:"metadata"`
	Items                []SubscriptionItem `json:"items"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CancelAt             int64              `json:"cancel_at"`
	CanceledAt           int64              `json:"canceled_at"`
	Created              int64              `json:"created"`
	EndedAt              int64              `json:"ended_at"`
	TrialStart           int64              `json:"trial_start"`
	TrialEnd             int64              `json:"trial_end"`
	DefaultPaymentMethod *PaymentMethod     `json:"default_payment_method"`
}

// BillingDetails: платёжные данные владельца способа оплаты.
type BillingDetails struct {
	Name    string          `json:"name"`
	Phone   string          `json:"phone"`
	Email   string          `json:"email"`
	Address *models.Address `json:"address"`
}

// Complete сообщает, заполнены ли имя и телефон и передан ли объект адреса.
// Адрес с пустыми полями считается переданным.
func (b BillingDetails) Complete() bool {
	return b.Name != "" && b.Phone != "" && b.Address != nil
}

// PaymentMethod: способ оплаты. Details содержит часть объекта, специфичную для его типа
// (например, объект card).
type PaymentMethod struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	CustomerID     string          `json:"customer_id"`
	BillingDetails BillingDetails  `json:"billing_details"`
	Details        json.RawMessage `json:"details,omitempty"`
}

// CheckoutSessionParams: параметры сессии оформления подписки.
type CheckoutSessionParams struct {
	CustomerID string
	UserID     string
	PriceID    string
	Quantity   int64
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession: созданная сессия оформления.
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}
