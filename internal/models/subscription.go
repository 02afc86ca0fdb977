package models

import "time"

// SubscriptionStatus: статус подписки у провайдера. Набор значений открыт:
// неизвестные статусы сохраняются как есть.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// Entitles сообщает, даёт ли статус доступ к платным функциям.
func (s SubscriptionStatus) Entitles() bool {
	return s == SubscriptionStatusTrialing || s == SubscriptionStatusActive
}

// Subscription: локальная копия подписки провайдера (таблица subscriptions).
// Необязательные отметки времени равны nil, а не нулевому времени.
type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Status             SubscriptionStatus `json:"status"`
	Metadata           Metadata           `json:"metadata"`
	PriceID            string             `json:"price_id"`
	Quantity           int64              `json:"quantity"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	Created            time.Time          `json:"created"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	EndedAt            *time.Time         `json:"ended_at"`
	CancelAt           *time.Time         `json:"cancel_at"`
	CanceledAt         *time.Time         `json:"canceled_at"`
	TrialStart         *time.Time         `json:"trial_start"`
	TrialEnd           *time.Time         `json:"trial_end"`
}

// SubscriptionDetails: подписка вместе с ценой и продуктом, на которые она оформлена.
type SubscriptionDetails struct {
	Subscription
	Price   Price   `json:"price"`
	Product Product `json:"product"`
}
