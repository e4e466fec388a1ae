package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// Ключи метаданных checkout-сессии для корреляции вебхука с заказом
const (
	metadataOrgIDKey  = "org_id"
	metadataUserIDKey = "user_id"
)

// CheckoutSessionInput параметры создания checkout-сессии
type CheckoutSessionInput struct {
	PriceID       string
	Recurring     bool
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	OrgID         string
	UserID        string
}

// CheckoutSession созданная провайдером checkout-сессия
type CheckoutSession struct {
	ID  string
	URL string
}

// Client определяет методы для взаимодействия со Stripe API.
type Client interface {
	// CreateCheckoutSession открывает hosted checkout-сессию на стороне Stripe.
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (CheckoutSession, error)

	// ListActiveProducts возвращает активные продукты каталога Stripe.
	ListActiveProducts(ctx context.Context) ([]domain.Product, error)

	// ListActivePrices возвращает активные цены каталога Stripe.
	ListActivePrices(ctx context.Context) ([]domain.Price, error)
}

// stripeClient реализует интерфейс Client поверх официального SDK.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewClient создает новый экземпляр клиента Stripe.
// Клиент передается в сервисы явно; глобального состояния SDK нет.
func NewClient(apiKey string, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeClient{
		client: sc,
		log:    log,
	}
}

// CreateCheckoutSession открывает checkout-сессию на стороне Stripe.
func (sc *stripeClient) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (CheckoutSession, error) {
	mode := stripe.CheckoutSessionModePayment
	if input.Recurring {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(input.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(mode)),
		SuccessURL:    stripe.String(input.SuccessURL),
		CancelURL:     stripe.String(input.CancelURL),
		CustomerEmail: stripe.String(input.CustomerEmail),
	}
	params.Context = ctx
	params.AddMetadata(metadataOrgIDKey, input.OrgID)
	params.AddMetadata(metadataUserIDKey, input.UserID)

	sess, err := sc.client.CheckoutSessions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCheckoutSession", err)
		return CheckoutSession{}, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	sc.log.Infow("Stripe checkout session created", "sessionID", sess.ID, "mode", string(mode))
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ListActiveProducts возвращает активные продукты с развернутой ценой по умолчанию.
func (sc *stripeClient) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	params := &stripe.ProductListParams{
		Active: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExpand("data.default_price")

	var products []domain.Product
	iter := sc.client.Products.List(params)
	for iter.Next() {
		products = append(products, MapProduct(iter.Product()))
	}
	if err := iter.Err(); err != nil {
		logStripeError(sc.log, "ListActiveProducts", err)
		return nil, fmt.Errorf("stripe: failed to list products: %w", err)
	}

	sc.log.Debugw("Fetched active products from Stripe", "count", len(products))
	return products, nil
}

// ListActivePrices возвращает активные цены каталога Stripe.
func (sc *stripeClient) ListActivePrices(ctx context.Context) ([]domain.Price, error) {
	params := &stripe.PriceListParams{
		Active: stripe.Bool(true),
	}
	params.Context = ctx

	var prices []domain.Price
	iter := sc.client.Prices.List(params)
	for iter.Next() {
		prices = append(prices, MapPrice(iter.Price()))
	}
	if err := iter.Err(); err != nil {
		logStripeError(sc.log, "ListActivePrices", err)
		return nil, fmt.Errorf("stripe: failed to list prices: %w", err)
	}

	sc.log.Debugw("Fetched active prices from Stripe", "count", len(prices))
	return prices, nil
}

// logStripeError - вспомогательная функция для логирования деталей ошибки Stripe.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
