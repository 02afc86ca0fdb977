// Package models содержит доменные структуры биллинга: каталог (продукты и цены),
// связку пользователь <-> клиент платёжного провайдера, подписки и служебные записи
// (журнал вебхуков, намерения двухфазной записи).
package models

// Metadata: произвольные пары ключ-значение, приходящие от провайдера.
type Metadata map[string]string

// Product представляет продукт каталога в том виде, в котором он хранится в таблице products.
// Запись полностью заменяется при каждом событии провайдера и никогда не удаляется.
type Product struct {
	ID          string   `json:"id"`
	Active      bool     `json:"active"`
	Name        string   `json:"name"`
	Description *string  `json:"description"` // nil, если описание не задано
	Image       *string  `json:"image"`       // первая картинка продукта или nil
	Metadata    Metadata `json:"metadata"`
}

// ProductWithPrices: активный продукт вместе с его активными ценами (для окна оформления подписки).
type ProductWithPrices struct {
	Product
	Prices []Price `json:"prices"`
}
