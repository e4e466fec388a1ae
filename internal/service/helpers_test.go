package service

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/metrics"
	"github.com/sitegrid/commerce-service/internal/stripe"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.ERROR)
}

func newTestMetrics() metrics.CommerceMetrics {
	return metrics.NewCommerceMetrics(prometheus.NewRegistry(), newTestLogger())
}

// recordingProducer записывает опубликованные события для проверок в тестах
type recordingProducer struct {
	mu      sync.Mutex
	created []domain.Order
	paid    []domain.Order
	failed  []domain.Order
	err     error
}

func (p *recordingProducer) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.created = append(p.created, order)
	return nil
}

func (p *recordingProducer) PublishOrderPaid(ctx context.Context, order domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.paid = append(p.paid, order)
	return nil
}

func (p *recordingProducer) PublishOrderFailed(ctx context.Context, order domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.failed = append(p.failed, order)
	return nil
}

func (p *recordingProducer) Close() error {
	return nil
}

func (p *recordingProducer) paidCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paid)
}

func (p *recordingProducer) failedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failed)
}

// fakeStripeClient детерминированная замена Stripe API для тестов
type fakeStripeClient struct {
	session    stripe.CheckoutSession
	sessionErr error
	products   []domain.Product
	prices     []domain.Price
	listErr    error

	mu     sync.Mutex
	inputs []stripe.CheckoutSessionInput
}

func (c *fakeStripeClient) CreateCheckoutSession(ctx context.Context, input stripe.CheckoutSessionInput) (stripe.CheckoutSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionErr != nil {
		return stripe.CheckoutSession{}, c.sessionErr
	}
	c.inputs = append(c.inputs, input)
	return c.session, nil
}

func (c *fakeStripeClient) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.products, nil
}

func (c *fakeStripeClient) ListActivePrices(ctx context.Context) ([]domain.Price, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.prices, nil
}
