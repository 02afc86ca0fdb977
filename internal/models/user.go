package models

import "encoding/json"

// Address: платёжный адрес в формате провайдера.
type Address struct {
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	State      string `json:"state,omitempty"`
}

// BillingProfile: платёжный профиль в записи пользователя (таблица users):
// адрес и снимок способа оплаты по умолчанию.
type BillingProfile struct {
	BillingAddress Address
	PaymentMethod  json.RawMessage
}
