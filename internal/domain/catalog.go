package domain

import (
	"time"
)

// PriceType тип тарификации цены
type PriceType string

const (
	PriceTypeOneTime   PriceType = "one_time"
	PriceTypeRecurring PriceType = "recurring"
)

// PriceInterval период списания для рекуррентных цен
type PriceInterval string

const (
	PriceIntervalDay   PriceInterval = "day"
	PriceIntervalWeek  PriceInterval = "week"
	PriceIntervalMonth PriceInterval = "month"
	PriceIntervalYear  PriceInterval = "year"
)

// Product представляет собой товар, зеркалируемый из Stripe.
// ID назначается Stripe; локально продукты не создаются.
type Product struct {
	ID          string            `json:"id"`
	Active      bool              `json:"active"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Image       string            `json:"image,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Price представляет собой цену товара, зеркалируемую из Stripe.
// Поля Interval/IntervalCount/TrialPeriodDays заполнены только для recurring.
type Price struct {
	ID              string            `json:"id"`
	ProductID       string            `json:"product_id"`
	Active          bool              `json:"active"`
	Currency        string            `json:"currency"`
	Type            PriceType         `json:"type"`
	UnitAmount      int64             `json:"unit_amount"`
	Interval        *PriceInterval    `json:"interval,omitempty"`
	IntervalCount   *int64            `json:"interval_count,omitempty"`
	TrialPeriodDays *int64            `json:"trial_period_days,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IsRecurring сообщает, является ли цена подписочной
func (p Price) IsRecurring() bool {
	return p.Type == PriceTypeRecurring
}

// SyncResult итог одного прохода синхронизации каталога
type SyncResult struct {
	ProductsUpserted int `json:"products_upserted"`
	PricesUpserted   int `json:"prices_upserted"`
	Skipped          int `json:"skipped"`
}
