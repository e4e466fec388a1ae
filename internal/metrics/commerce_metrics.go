package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// CommerceMetrics интерфейс для метрик коммерческого контура
type CommerceMetrics interface {
	IncOrderCreated(currency string)
	IncOrderPaid(currency string)
	IncOrderFailed(currency string)
	IncWebhookEvent(eventType, outcome string)
	ObserveCatalogSync(productsUpserted, pricesUpserted, skipped int)
}

// Возможные исходы обработки вебхук-события
const (
	WebhookOutcomeApplied  = "applied"
	WebhookOutcomeNoop     = "noop"
	WebhookOutcomeIgnored  = "ignored"
	WebhookOutcomeRejected = "rejected"
	WebhookOutcomeError    = "error"
)

type commerceMetrics struct {
	log              *logger.Logger
	ordersCreated    *prometheus.CounterVec
	ordersStatus     *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	catalogSyncRows  *prometheus.CounterVec
	catalogSyncTotal prometheus.Counter
}

// NewCommerceMetrics создает новые метрики коммерческого контура
func NewCommerceMetrics(registry *prometheus.Registry, log *logger.Logger) CommerceMetrics {
	ordersCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "The total number of created orders",
		},
		[]string{"currency"},
	)

	ordersStatus := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_status_total",
			Help: "The total number of order status transitions",
		},
		[]string{"status", "currency"},
	)

	webhookEvents := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "The total number of processed webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	catalogSyncRows := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_rows_total",
			Help: "The total number of catalog rows touched by sync passes",
		},
		[]string{"kind"},
	)

	catalogSyncTotal := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_sync_passes_total",
			Help: "The total number of catalog sync passes",
		},
	)

	return &commerceMetrics{
		log:              log,
		ordersCreated:    ordersCreated,
		ordersStatus:     ordersStatus,
		webhookEvents:    webhookEvents,
		catalogSyncRows:  catalogSyncRows,
		catalogSyncTotal: catalogSyncTotal,
	}
}

// IncOrderCreated увеличивает счетчик созданных заказов
func (m *commerceMetrics) IncOrderCreated(currency string) {
	m.ordersCreated.WithLabelValues(currency).Inc()
}

// IncOrderPaid увеличивает счетчик оплаченных заказов
func (m *commerceMetrics) IncOrderPaid(currency string) {
	m.ordersStatus.WithLabelValues("paid", currency).Inc()
}

// IncOrderFailed увеличивает счетчик неуспешных заказов
func (m *commerceMetrics) IncOrderFailed(currency string) {
	m.ordersStatus.WithLabelValues("failed", currency).Inc()
}

// IncWebhookEvent увеличивает счетчик вебхук-событий
func (m *commerceMetrics) IncWebhookEvent(eventType, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveCatalogSync записывает итоги прохода синхронизации каталога
func (m *commerceMetrics) ObserveCatalogSync(productsUpserted, pricesUpserted, skipped int) {
	m.catalogSyncTotal.Inc()
	m.catalogSyncRows.WithLabelValues("product").Add(float64(productsUpserted))
	m.catalogSyncRows.WithLabelValues("price").Add(float64(pricesUpserted))
	m.catalogSyncRows.WithLabelValues("skipped").Add(float64(skipped))
}
