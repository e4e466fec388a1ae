package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/repository"
	"github.com/sitegrid/commerce-service/internal/stripe"
)

const testBaseURL = "http://localhost:3000"

func seedPrice(t *testing.T, catalog repository.CatalogRepository, price domain.Price) {
	t.Helper()
	if err := catalog.UpsertPrice(context.Background(), price); err != nil {
		t.Fatalf("failed to seed price: %v", err)
	}
}

func testIdentity() domain.Identity {
	return domain.Identity{UserID: "user-1", Email: "buyer@example.com"}
}

func TestCheckoutService_CreateCheckout(t *testing.T) {
	catalog := repository.NewInMemoryCatalogRepository(newTestLogger())
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	client := &fakeStripeClient{session: stripe.CheckoutSession{ID: "cs_abc", URL: "https://checkout.stripe.com/pay/cs_abc"}}
	prod := &recordingProducer{}

	seedPrice(t, catalog, domain.Price{ID: "price_1", ProductID: "prod_1", Active: true, Currency: "usd", Type: domain.PriceTypeOneTime, UnitAmount: 1000})

	svc := NewCheckoutService(catalog, orders, client, prod, newTestMetrics(), testBaseURL, newTestLogger())

	orgID := uuid.New()
	resp, err := svc.CreateCheckout(context.Background(), testIdentity(), domain.CheckoutRequest{PriceID: "price_1", OrgID: orgID.String()})
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if resp.URL != "https://checkout.stripe.com/pay/cs_abc" {
		t.Errorf("response URL = %s, want session URL", resp.URL)
	}

	order, err := orders.GetBySessionID(context.Background(), "cs_abc")
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("order status = %s, want %s", order.Status, domain.OrderStatusPending)
	}
	if order.AmountTotal != 1000 || order.Currency != "usd" {
		t.Errorf("order amount = %d %s, want 1000 usd", order.AmountTotal, order.Currency)
	}
	if order.OrgID != orgID {
		t.Errorf("order orgID = %s, want %s", order.OrgID, orgID)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("checkout sessions created = %d, want 1", len(client.inputs))
	}
	input := client.inputs[0]
	if input.PriceID != "price_1" || input.Recurring {
		t.Errorf("session input = %+v, want one-time price_1", input)
	}
	if input.OrgID != orgID.String() || input.UserID != "user-1" {
		t.Errorf("session metadata = org %s user %s, want caller identity", input.OrgID, input.UserID)
	}
	if input.SuccessURL != testBaseURL+"/checkout/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Errorf("success URL = %s", input.SuccessURL)
	}

	if len(prod.created) != 1 {
		t.Errorf("created events published = %d, want 1", len(prod.created))
	}
}

func TestCheckoutService_RecurringPriceUsesSubscriptionMode(t *testing.T) {
	catalog := repository.NewInMemoryCatalogRepository(newTestLogger())
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	client := &fakeStripeClient{session: stripe.CheckoutSession{ID: "cs_sub", URL: "https://checkout.stripe.com/pay/cs_sub"}}

	interval := domain.PriceIntervalMonth
	seedPrice(t, catalog, domain.Price{ID: "price_sub", ProductID: "prod_1", Active: true, Currency: "usd", Type: domain.PriceTypeRecurring, UnitAmount: 2500, Interval: &interval})

	svc := NewCheckoutService(catalog, orders, client, &recordingProducer{}, newTestMetrics(), testBaseURL, newTestLogger())

	if _, err := svc.CreateCheckout(context.Background(), testIdentity(), domain.CheckoutRequest{PriceID: "price_sub", OrgID: uuid.New().String()}); err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if len(client.inputs) != 1 || !client.inputs[0].Recurring {
		t.Errorf("session input = %+v, want recurring", client.inputs)
	}
}

func TestCheckoutService_Validation(t *testing.T) {
	catalog := repository.NewInMemoryCatalogRepository(newTestLogger())
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	client := &fakeStripeClient{}
	svc := NewCheckoutService(catalog, orders, client, &recordingProducer{}, newTestMetrics(), testBaseURL, newTestLogger())

	tests := []struct {
		name     string
		identity domain.Identity
		req      domain.CheckoutRequest
		wantErr  error
	}{
		{"no identity", domain.Identity{}, domain.CheckoutRequest{PriceID: "price_1", OrgID: uuid.New().String()}, domain.ErrUnauthenticated},
		{"empty price", testIdentity(), domain.CheckoutRequest{OrgID: uuid.New().String()}, domain.ErrInvalidInput},
		{"empty org", testIdentity(), domain.CheckoutRequest{PriceID: "price_1"}, domain.ErrInvalidInput},
		{"malformed org", testIdentity(), domain.CheckoutRequest{PriceID: "price_1", OrgID: "not-a-uuid"}, domain.ErrInvalidInput},
		{"unknown price", testIdentity(), domain.CheckoutRequest{PriceID: "price_missing", OrgID: uuid.New().String()}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCheckout(context.Background(), tt.identity, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateCheckout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if len(client.inputs) != 0 {
		t.Errorf("checkout sessions created = %d, want 0 for rejected requests", len(client.inputs))
	}
}

func TestCheckoutService_StripeFailureCreatesNoOrder(t *testing.T) {
	catalog := repository.NewInMemoryCatalogRepository(newTestLogger())
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	client := &fakeStripeClient{sessionErr: errors.New("api unavailable")}

	seedPrice(t, catalog, domain.Price{ID: "price_1", ProductID: "prod_1", Active: true, Currency: "usd", Type: domain.PriceTypeOneTime, UnitAmount: 1000})

	svc := NewCheckoutService(catalog, orders, client, &recordingProducer{}, newTestMetrics(), testBaseURL, newTestLogger())

	orgID := uuid.New()
	_, err := svc.CreateCheckout(context.Background(), testIdentity(), domain.CheckoutRequest{PriceID: "price_1", OrgID: orgID.String()})
	if !errors.Is(err, domain.ErrExternalServiceUnavailable) {
		t.Fatalf("CreateCheckout() error = %v, want ErrExternalServiceUnavailable", err)
	}

	got, err := orders.ListByOrgID(context.Background(), orgID)
	if err != nil {
		t.Fatalf("ListByOrgID() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("orders persisted = %d, want 0 when session creation fails", len(got))
	}
}

// failingOrderCreator имитирует отказ хранилища после создания сессии
type failingOrderCreator struct {
	repository.OrderRepository
}

func (r *failingOrderCreator) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	return domain.Order{}, errors.New("connection refused")
}

func TestCheckoutService_PersistFailureAfterSession(t *testing.T) {
	catalog := repository.NewInMemoryCatalogRepository(newTestLogger())
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	client := &fakeStripeClient{session: stripe.CheckoutSession{ID: "cs_orphan", URL: "https://checkout.stripe.com/pay/cs_orphan"}}
	prod := &recordingProducer{}

	seedPrice(t, catalog, domain.Price{ID: "price_1", ProductID: "prod_1", Active: true, Currency: "usd", Type: domain.PriceTypeOneTime, UnitAmount: 1000})

	svc := NewCheckoutService(catalog, &failingOrderCreator{OrderRepository: orders}, client, prod, newTestMetrics(), testBaseURL, newTestLogger())

	_, err := svc.CreateCheckout(context.Background(), testIdentity(), domain.CheckoutRequest{PriceID: "price_1", OrgID: uuid.New().String()})
	if err == nil {
		t.Fatal("CreateCheckout() error = nil, want persistence error")
	}
	// Сессия на стороне провайдера уже создана, событие о заказе не публикуется
	if len(prod.created) != 0 {
		t.Errorf("created events published = %d, want 0", len(prod.created))
	}
}

func TestCheckoutService_PublishFailureDoesNotFailCheckout(t *testing.T) {
	catalog := repository.NewInMemoryCatalogRepository(newTestLogger())
	orders := repository.NewInMemoryOrderRepository(newTestLogger())
	client := &fakeStripeClient{session: stripe.CheckoutSession{ID: "cs_pub", URL: "https://checkout.stripe.com/pay/cs_pub"}}
	prod := &recordingProducer{err: errors.New("broker unavailable")}

	seedPrice(t, catalog, domain.Price{ID: "price_1", ProductID: "prod_1", Active: true, Currency: "usd", Type: domain.PriceTypeOneTime, UnitAmount: 1000})

	svc := NewCheckoutService(catalog, orders, client, prod, newTestMetrics(), testBaseURL, newTestLogger())

	resp, err := svc.CreateCheckout(context.Background(), testIdentity(), domain.CheckoutRequest{PriceID: "price_1", OrgID: uuid.New().String()})
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v, want nil when only publish fails", err)
	}
	if resp.URL == "" {
		t.Error("response URL is empty")
	}
}
