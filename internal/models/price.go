package models

// PriceType: тип цены: разовая или периодическая.
type PriceType string

const (
	PriceTypeOneTime   PriceType = "one_time"
	PriceTypeRecurring PriceType = "recurring"
)

// Price представляет цену продукта (таблица prices). Принадлежит ровно одному Product.
type Price struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	Active          bool      `json:"active"`
	Currency        string    `json:"currency"`
	Description     *string   `json:"description"`
	Type            PriceType `json:"type"`
	UnitAmount      *int64    `json:"unit_amount"`
	Interval        *string   `json:"interval"`
	IntervalCount   *int64    `json:"interval_count"`
	TrialPeriodDays *int64    `json:"trial_period_days"`
	Metadata        Metadata  `json:"metadata"`
}
