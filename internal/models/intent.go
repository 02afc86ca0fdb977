package models

import (
	"encoding/json"
	"time"
)

// IntentKind: вид отложенной двухфазной операции.
type IntentKind string

// IntentCopyBillingDetails: копирование платёжных данных в клиента провайдера и в users.
const IntentCopyBillingDetails IntentKind = "copy_billing_details"

// IntentStatus: состояние намерения.
type IntentStatus string

const (
	IntentPending IntentStatus = "pending"
	IntentDone    IntentStatus = "done"
)

// Intent: маркер незавершённой записи в две независимые системы (провайдер и хранилище).
// Пишется до вызова провайдера и закрывается после успешной локальной записи;
// зависшие маркеры подбирает sweeper.
//
// Для одной тройки (пользователь, клиент, способ оплаты) существует не больше одного
// pending-намерения каждого вида.
type Intent struct {
	ID              int64
	Kind            IntentKind
	UserID          string
	CustomerID      string
	PaymentMethodID string
	Payload         json.RawMessage
	Status          IntentStatus
	Attempts        int
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
