package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/kafka/producer"
	"github.com/sitegrid/commerce-service/internal/metrics"
	"github.com/sitegrid/commerce-service/internal/repository"
	"github.com/sitegrid/commerce-service/internal/stripe"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// WebhookService интерфейс сервиса обработки вебхуков Stripe
type WebhookService interface {
	// HandleEvent проверяет подпись и применяет событие к жизненному циклу заказа
	HandleEvent(ctx context.Context, payload []byte, sigHeader string) error
}

// webhookService реализация сервиса обработки вебхуков
type webhookService struct {
	orders   repository.OrderRepository
	producer producer.OrderProducer
	metrics  metrics.CommerceMetrics
	secret   string
	log      *logger.Logger
}

// NewWebhookService создает новый сервис обработки вебхуков
func NewWebhookService(
	orders repository.OrderRepository,
	prod producer.OrderProducer,
	m metrics.CommerceMetrics,
	secret string,
	log *logger.Logger,
) WebhookService {
	return &webhookService{
		orders:   orders,
		producer: prod,
		metrics:  m,
		secret:   secret,
		log:      log,
	}
}

// HandleEvent проверяет подпись сырого тела запроса и применяет событие.
// Подпись проверяется до любого разбора тела. События без эффекта
// (неизвестный тип, неизвестная сессия, заказ уже в конечном статусе)
// подтверждаются без изменений. Ошибки хранилища возвращаются наверх:
// провайдер повторит доставку, а переход идемпотентен.
func (s *webhookService) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.secret)
	if err != nil {
		s.metrics.IncWebhookEvent("unknown", metrics.WebhookOutcomeRejected)
		s.log.Warnw("Webhook signature verification failed", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	checkoutEvent, err := stripe.MapEvent(event)
	if err != nil {
		s.metrics.IncWebhookEvent(string(event.Type), metrics.WebhookOutcomeRejected)
		s.log.Errorw("Failed to parse webhook event payload", "eventID", event.ID, "type", event.Type, "error", err)
		return fmt.Errorf("%w: malformed event payload: %v", domain.ErrInvalidInput, err)
	}

	switch checkoutEvent.Kind {
	case domain.CheckoutEventCompleted:
		return s.applyTransition(ctx, checkoutEvent, domain.OrderStatusPaid)
	case domain.CheckoutEventExpired:
		return s.applyTransition(ctx, checkoutEvent, domain.OrderStatusFailed)
	default:
		s.metrics.IncWebhookEvent(string(event.Type), metrics.WebhookOutcomeIgnored)
		s.log.Debugw("Ignoring webhook event type", "eventID", event.ID, "type", event.Type)
		return nil
	}
}

// applyTransition переводит заказ из pending в конечный статус.
// Переход условный: заказ не в pending или не найден означает, что
// событие уже применено либо сессия неизвестна, и оно подтверждается.
func (s *webhookService) applyTransition(ctx context.Context, event domain.CheckoutEvent, to domain.OrderStatus) error {
	if event.SessionID == "" {
		s.metrics.IncWebhookEvent(string(event.Kind), metrics.WebhookOutcomeIgnored)
		s.log.Warnw("Webhook event without session ID", "eventID", event.EventID, "kind", event.Kind)
		return nil
	}

	applied, err := s.orders.TransitionFromPending(ctx, event.SessionID, to)
	if err != nil {
		s.metrics.IncWebhookEvent(string(event.Kind), metrics.WebhookOutcomeError)
		return fmt.Errorf("failed to transition order for session %s: %w", event.SessionID, err)
	}

	if !applied {
		s.metrics.IncWebhookEvent(string(event.Kind), metrics.WebhookOutcomeNoop)
		s.log.Debugw("No pending order for webhook event", "eventID", event.EventID, "sessionID", event.SessionID)
		return nil
	}

	s.metrics.IncWebhookEvent(string(event.Kind), metrics.WebhookOutcomeApplied)

	order, err := s.orders.GetBySessionID(ctx, event.SessionID)
	if err != nil {
		// Переход уже применен, событие подтверждается
		s.log.Warnw("Failed to load order after transition", "sessionID", event.SessionID, "error", err)
		return nil
	}

	switch to {
	case domain.OrderStatusPaid:
		s.metrics.IncOrderPaid(order.Currency)
		if err := s.producer.PublishOrderPaid(ctx, order); err != nil {
			s.log.Warnw("Failed to publish order paid event", "orderID", order.ID, "error", err)
		}
	case domain.OrderStatusFailed:
		s.metrics.IncOrderFailed(order.Currency)
		if err := s.producer.PublishOrderFailed(ctx, order); err != nil {
			s.log.Warnw("Failed to publish order failed event", "orderID", order.ID, "error", err)
		}
	}

	s.log.Infow("Order transitioned",
		"orderID", order.ID,
		"sessionID", event.SessionID,
		"status", to,
		"eventID", event.EventID,
	)

	return nil
}
