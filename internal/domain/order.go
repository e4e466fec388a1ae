package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus статус заказа
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// IsTerminal сообщает, является ли статус поглощающим.
// Из paid и failed переходов больше нет.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

// Order представляет собой заказ, созданный при открытии checkout-сессии.
// StripeSessionID уникален и служит ключом корреляции для вебхуков.
// Сумма и валюта фиксируются из цены в момент создания.
type Order struct {
	ID              uuid.UUID   `json:"id"`
	OrgID           uuid.UUID   `json:"org_id"`
	PriceID         string      `json:"price_id"`
	StripeSessionID string      `json:"stripe_session_id"`
	AmountTotal     int64       `json:"amount_total"`
	Currency        string      `json:"currency"`
	CustomerEmail   string      `json:"customer_email"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CheckoutRequest представляет запрос на создание checkout-сессии
type CheckoutRequest struct {
	PriceID string `json:"price_id" validate:"required"`
	OrgID   string `json:"org_id" validate:"required,uuid4"`
}

// CheckoutResponse представляет ответ с URL платежной страницы Stripe
type CheckoutResponse struct {
	URL string `json:"url"`
}

// Identity идентичность вызывающего, разрешенная внешним коллаборатором
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
