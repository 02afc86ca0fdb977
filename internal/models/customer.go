package models

// Customer связывает пользователя приложения с клиентом платёжного провайдера (один к одному).
// StripeCustomerID пуст, если строка существует, но клиент у провайдера ещё не создан.
type Customer struct {
	UserID           string
	StripeCustomerID string
}
