package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
	TopicOrderFailed  = "order.failed"
)

// OrderEvent представляет событие заказа для Kafka
type OrderEvent struct {
	ID              string             `json:"id"`
	OrgID           string             `json:"org_id"`
	PriceID         string             `json:"price_id"`
	StripeSessionID string             `json:"stripe_session_id"`
	AmountTotal     int64              `json:"amount_total"`
	Currency        string             `json:"currency"`
	Status          domain.OrderStatus `json:"status"`
	Timestamp       time.Time          `json:"timestamp"`
}

// OrderProducer интерфейс для отправки событий заказов
type OrderProducer interface {
	PublishOrderCreated(ctx context.Context, order domain.Order) error
	PublishOrderPaid(ctx context.Context, order domain.Order) error
	PublishOrderFailed(ctx context.Context, order domain.Order) error
	Close() error
}

type kafkaOrderProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaOrderProducer создает новый продюсер событий заказов
func NewKafkaOrderProducer(producer sarama.SyncProducer, log *logger.Logger) OrderProducer {
	return &kafkaOrderProducer{
		producer: producer,
		log:      log,
	}
}

// PublishOrderCreated публикует событие о создании заказа
func (p *kafkaOrderProducer) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	return p.publishEvent(ctx, TopicOrderCreated, order)
}

// PublishOrderPaid публикует событие об оплате заказа
func (p *kafkaOrderProducer) PublishOrderPaid(ctx context.Context, order domain.Order) error {
	return p.publishEvent(ctx, TopicOrderPaid, order)
}

// PublishOrderFailed публикует событие о неуспешном заказе
func (p *kafkaOrderProducer) PublishOrderFailed(ctx context.Context, order domain.Order) error {
	return p.publishEvent(ctx, TopicOrderFailed, order)
}

// Close закрывает продюсер
func (p *kafkaOrderProducer) Close() error {
	return p.producer.Close()
}

// publishEvent сериализует и отправляет событие заказа в указанный топик.
// Ключом сообщения служит ID заказа: события одного заказа попадают в одну
// партицию и сохраняют порядок.
func (p *kafkaOrderProducer) publishEvent(ctx context.Context, topic string, order domain.Order) error {
	event := OrderEvent{
		ID:              order.ID.String(),
		OrgID:           order.OrgID.String(),
		PriceID:         order.PriceID,
		StripeSessionID: order.StripeSessionID,
		AmountTotal:     order.AmountTotal,
		Currency:        order.Currency,
		Status:          order.Status,
		Timestamp:       time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Errorw("Failed to publish order event", "topic", topic, "orderID", event.ID, "error", err)
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.log.Debugw("Order event published", "topic", topic, "orderID", event.ID, "partition", partition, "offset", offset)
	return nil
}

// NopOrderProducer продюсер-заглушка для окружений без Kafka
type NopOrderProducer struct{}

// NewNopOrderProducer создает продюсер, который ничего не отправляет
func NewNopOrderProducer() OrderProducer {
	return &NopOrderProducer{}
}

func (p *NopOrderProducer) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	return nil
}

func (p *NopOrderProducer) PublishOrderPaid(ctx context.Context, order domain.Order) error {
	return nil
}

func (p *NopOrderProducer) PublishOrderFailed(ctx context.Context, order domain.Order) error {
	return nil
}

func (p *NopOrderProducer) Close() error {
	return nil
}
