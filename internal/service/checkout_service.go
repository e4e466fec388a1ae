package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/kafka/producer"
	"github.com/sitegrid/commerce-service/internal/metrics"
	"github.com/sitegrid/commerce-service/internal/repository"
	"github.com/sitegrid/commerce-service/internal/stripe"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// CheckoutService интерфейс сервиса инициации оплаты
type CheckoutService interface {
	// CreateCheckout создает Stripe Checkout сессию и локальный pending заказ
	CreateCheckout(ctx context.Context, identity domain.Identity, req domain.CheckoutRequest) (domain.CheckoutResponse, error)

	// ListOrdersByOrg возвращает заказы организации
	ListOrdersByOrg(ctx context.Context, orgID uuid.UUID) ([]domain.Order, error)
}

// checkoutService реализация сервиса инициации оплаты
type checkoutService struct {
	catalog  repository.CatalogRepository
	orders   repository.OrderRepository
	client   stripe.Client
	producer producer.OrderProducer
	metrics  metrics.CommerceMetrics
	baseURL  string
	log      *logger.Logger
}

// NewCheckoutService создает новый сервис инициации оплаты
func NewCheckoutService(
	catalog repository.CatalogRepository,
	orders repository.OrderRepository,
	client stripe.Client,
	prod producer.OrderProducer,
	m metrics.CommerceMetrics,
	baseURL string,
	log *logger.Logger,
) CheckoutService {
	return &checkoutService{
		catalog:  catalog,
		orders:   orders,
		client:   client,
		producer: prod,
		metrics:  m,
		baseURL:  baseURL,
		log:      log,
	}
}

// CreateCheckout создает Stripe Checkout сессию и локальный заказ в статусе pending.
// Сессия создается раньше локальной записи: если запись не удалась, осиротевшая
// сессия истечет на стороне Stripe, а событие checkout.session.expired не найдет
// заказа и будет подтверждено без изменений.
func (s *checkoutService) CreateCheckout(ctx context.Context, identity domain.Identity, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if identity.UserID == "" {
		return domain.CheckoutResponse{}, domain.ErrUnauthenticated
	}

	var verrs domain.ValidationErrors
	if req.PriceID == "" {
		verrs.Add("price_id", "is required")
	}
	if req.OrgID == "" {
		verrs.Add("org_id", "is required")
	}
	orgID, err := uuid.Parse(req.OrgID)
	if req.OrgID != "" && err != nil {
		verrs.Add("org_id", "must be a valid UUID")
	}
	if verrs.HasErrors() {
		return domain.CheckoutResponse{}, verrs
	}

	price, err := s.catalog.GetPriceByID(ctx, req.PriceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.CheckoutResponse{}, domain.NewNotFoundError("price", req.PriceID)
		}
		return domain.CheckoutResponse{}, fmt.Errorf("failed to load price %s: %w", req.PriceID, err)
	}

	session, err := s.client.CreateCheckoutSession(ctx, stripe.CheckoutSessionInput{
		PriceID:       price.ID,
		Recurring:     price.IsRecurring(),
		SuccessURL:    s.baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/checkout/cancel",
		CustomerEmail: identity.Email,
		OrgID:         orgID.String(),
		UserID:        identity.UserID,
	})
	if err != nil {
		return domain.CheckoutResponse{}, domain.NewExternalServiceError("stripe", "CreateCheckoutSession", "failed to create checkout session", err)
	}

	order, err := s.orders.Create(ctx, domain.Order{
		ID:              uuid.New(),
		OrgID:           orgID,
		PriceID:         price.ID,
		StripeSessionID: session.ID,
		AmountTotal:     price.UnitAmount,
		Currency:        price.Currency,
		CustomerEmail:   identity.Email,
		Status:          domain.OrderStatusPending,
	})
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("failed to create order for session %s: %w", session.ID, err)
	}

	s.metrics.IncOrderCreated(order.Currency)

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		// Публикация события не входит в контракт операции
		s.log.Warnw("Failed to publish order created event", "orderID", order.ID, "error", err)
	}

	s.log.Infow("Checkout session created",
		"orderID", order.ID,
		"sessionID", session.ID,
		"orgID", order.OrgID,
		"priceID", order.PriceID,
	)

	return domain.CheckoutResponse{URL: session.URL}, nil
}

// ListOrdersByOrg возвращает заказы организации
func (s *checkoutService) ListOrdersByOrg(ctx context.Context, orgID uuid.UUID) ([]domain.Order, error) {
	return s.orders.ListByOrgID(ctx, orgID)
}
