package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v78"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/repository"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload строит заголовок Stripe-Signature по схеме провайдера
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func checkoutEventJSON(eventID, eventType, sessionID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"api_version":%q,"type":%q,"data":{"object":{"id":%q,"customer_email":"buyer@example.com","metadata":{"org_id":"org-1","user_id":"user-1"}}}}`,
		eventID, stripego.APIVersion, eventType, sessionID,
	))
}

func seedPendingOrder(t *testing.T, orders repository.OrderRepository, sessionID string) domain.Order {
	t.Helper()
	order, err := orders.Create(context.Background(), domain.Order{
		ID:              uuid.New(),
		OrgID:           uuid.New(),
		PriceID:         "price_1",
		StripeSessionID: sessionID,
		AmountTotal:     1000,
		Currency:        "usd",
		CustomerEmail:   "buyer@example.com",
		Status:          domain.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return order
}

func TestWebhookService_CompletedMarksOrderPaid(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	prod := &recordingProducer{}
	svc := NewWebhookService(orders, prod, newTestMetrics(), testWebhookSecret, newTestLogger())

	seedPendingOrder(t, orders, "cs_100")

	payload := checkoutEventJSON("evt_1", "checkout.session.completed", "cs_100")
	sig := signPayload(payload, testWebhookSecret, time.Now())

	if err := svc.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	order, err := orders.GetBySessionID(context.Background(), "cs_100")
	if err != nil {
		t.Fatalf("GetBySessionID() error = %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("order status = %s, want %s", order.Status, domain.OrderStatusPaid)
	}
	if prod.paidCount() != 1 {
		t.Errorf("paid events published = %d, want 1", prod.paidCount())
	}
}

func TestWebhookService_ExpiredMarksOrderFailed(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	prod := &recordingProducer{}
	svc := NewWebhookService(orders, prod, newTestMetrics(), testWebhookSecret, newTestLogger())

	seedPendingOrder(t, orders, "cs_200")

	payload := checkoutEventJSON("evt_2", "checkout.session.expired", "cs_200")
	sig := signPayload(payload, testWebhookSecret, time.Now())

	if err := svc.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	order, _ := orders.GetBySessionID(context.Background(), "cs_200")
	if order.Status != domain.OrderStatusFailed {
		t.Errorf("order status = %s, want %s", order.Status, domain.OrderStatusFailed)
	}
	if prod.failedCount() != 1 {
		t.Errorf("failed events published = %d, want 1", prod.failedCount())
	}
}

func TestWebhookService_RedeliveryIsIdempotent(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	prod := &recordingProducer{}
	svc := NewWebhookService(orders, prod, newTestMetrics(), testWebhookSecret, newTestLogger())

	seedPendingOrder(t, orders, "cs_300")

	payload := checkoutEventJSON("evt_3", "checkout.session.completed", "cs_300")
	sig := signPayload(payload, testWebhookSecret, time.Now())

	if err := svc.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("first delivery error = %v", err)
	}
	first, _ := orders.GetBySessionID(context.Background(), "cs_300")

	if err := svc.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	second, _ := orders.GetBySessionID(context.Background(), "cs_300")

	if second.Status != domain.OrderStatusPaid {
		t.Errorf("order status after redelivery = %s, want %s", second.Status, domain.OrderStatusPaid)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("updated_at changed on redelivery: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if prod.paidCount() != 1 {
		t.Errorf("paid events published = %d, want 1", prod.paidCount())
	}
}

func TestWebhookService_TerminalStatusIsAbsorbing(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	prod := &recordingProducer{}
	svc := NewWebhookService(orders, prod, newTestMetrics(), testWebhookSecret, newTestLogger())

	seedPendingOrder(t, orders, "cs_400")

	completed := checkoutEventJSON("evt_4", "checkout.session.completed", "cs_400")
	if err := svc.HandleEvent(context.Background(), completed, signPayload(completed, testWebhookSecret, time.Now())); err != nil {
		t.Fatalf("completed delivery error = %v", err)
	}

	// Запоздавшее expired для уже оплаченного заказа подтверждается без изменений
	expired := checkoutEventJSON("evt_5", "checkout.session.expired", "cs_400")
	if err := svc.HandleEvent(context.Background(), expired, signPayload(expired, testWebhookSecret, time.Now())); err != nil {
		t.Fatalf("late expired delivery error = %v", err)
	}

	order, _ := orders.GetBySessionID(context.Background(), "cs_400")
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("order status = %s, want %s", order.Status, domain.OrderStatusPaid)
	}
	if prod.failedCount() != 0 {
		t.Errorf("failed events published = %d, want 0", prod.failedCount())
	}
}

func TestWebhookService_UnknownSessionIsAcked(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	prod := &recordingProducer{}
	svc := NewWebhookService(orders, prod, newTestMetrics(), testWebhookSecret, newTestLogger())

	payload := checkoutEventJSON("evt_6", "checkout.session.completed", "cs_missing")
	sig := signPayload(payload, testWebhookSecret, time.Now())

	if err := svc.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil for unknown session", err)
	}
	if prod.paidCount() != 0 {
		t.Errorf("paid events published = %d, want 0", prod.paidCount())
	}
}

func TestWebhookService_UnknownEventTypeIsAcked(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	prod := &recordingProducer{}
	svc := NewWebhookService(orders, prod, newTestMetrics(), testWebhookSecret, newTestLogger())

	seedPendingOrder(t, orders, "cs_500")

	payload := []byte(fmt.Sprintf(`{"id":"evt_7","api_version":%q,"type":"invoice.paid","data":{"object":{"id":"in_1"}}}`, stripego.APIVersion))
	sig := signPayload(payload, testWebhookSecret, time.Now())

	if err := svc.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil for unrecognized type", err)
	}

	order, _ := orders.GetBySessionID(context.Background(), "cs_500")
	if order.Status != domain.OrderStatusPending {
		t.Errorf("order status = %s, want untouched %s", order.Status, domain.OrderStatusPending)
	}
}

func TestWebhookService_InvalidSignatureIsRejected(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	prod := &recordingProducer{}
	svc := NewWebhookService(orders, prod, newTestMetrics(), testWebhookSecret, newTestLogger())

	seedPendingOrder(t, orders, "cs_600")

	payload := checkoutEventJSON("evt_8", "checkout.session.completed", "cs_600")
	sig := signPayload(payload, testWebhookSecret, time.Now())

	tests := []struct {
		name    string
		payload []byte
		sig     string
	}{
		{"tampered payload", checkoutEventJSON("evt_8", "checkout.session.completed", "cs_other"), sig},
		{"wrong secret", payload, signPayload(payload, "whsec_wrong", time.Now())},
		{"garbage header", payload, "t=123,v1=deadbeef"},
		{"empty header", payload, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.HandleEvent(context.Background(), tt.payload, tt.sig)
			if !errors.Is(err, domain.ErrInvalidSignature) {
				t.Errorf("HandleEvent() error = %v, want ErrInvalidSignature", err)
			}
		})
	}

	// Отклоненные доставки не меняют хранилище
	order, _ := orders.GetBySessionID(context.Background(), "cs_600")
	if order.Status != domain.OrderStatusPending {
		t.Errorf("order status = %s, want untouched %s", order.Status, domain.OrderStatusPending)
	}
	if prod.paidCount() != 0 {
		t.Errorf("paid events published = %d, want 0", prod.paidCount())
	}
}

func TestWebhookService_MissingSessionIDIsAcked(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	svc := NewWebhookService(orders, &recordingProducer{}, newTestMetrics(), testWebhookSecret, newTestLogger())

	payload := []byte(fmt.Sprintf(`{"id":"evt_9","api_version":%q,"type":"checkout.session.completed","data":{"object":{"id":""}}}`, stripego.APIVersion))
	sig := signPayload(payload, testWebhookSecret, time.Now())

	if err := svc.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil for event without session ID", err)
	}
}

// failingOrderRepo имитирует недоступное хранилище при переходе статуса
type failingOrderRepo struct {
	repository.OrderRepository
}

func (r *failingOrderRepo) TransitionFromPending(ctx context.Context, sessionID string, to domain.OrderStatus) (bool, error) {
	return false, errors.New("connection refused")
}

func TestWebhookService_StoreErrorPropagates(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	seedPendingOrder(t, orders, "cs_700")

	svc := NewWebhookService(&failingOrderRepo{OrderRepository: orders}, &recordingProducer{}, newTestMetrics(), testWebhookSecret, newTestLogger())

	payload := checkoutEventJSON("evt_10", "checkout.session.completed", "cs_700")
	sig := signPayload(payload, testWebhookSecret, time.Now())

	if err := svc.HandleEvent(context.Background(), payload, sig); err == nil {
		t.Fatal("HandleEvent() error = nil, want store error to propagate for provider retry")
	}
}

func TestWebhookService_ConcurrentRedeliveries(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	prod := &recordingProducer{}
	svc := NewWebhookService(orders, prod, newTestMetrics(), testWebhookSecret, newTestLogger())

	seedPendingOrder(t, orders, "cs_800")

	payload := checkoutEventJSON("evt_11", "checkout.session.completed", "cs_800")
	sig := signPayload(payload, testWebhookSecret, time.Now())

	const deliveries = 16
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.HandleEvent(context.Background(), payload, sig); err != nil {
				t.Errorf("concurrent HandleEvent() error = %v", err)
			}
		}()
	}
	wg.Wait()

	order, _ := orders.GetBySessionID(context.Background(), "cs_800")
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("order status = %s, want %s", order.Status, domain.OrderStatusPaid)
	}
	if prod.paidCount() != 1 {
		t.Errorf("paid events published = %d, want exactly 1", prod.paidCount())
	}
}
