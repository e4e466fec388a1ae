package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

func newOrderRepo() *InMemoryOrderRepository {
	return NewInMemoryOrderRepository(logger.New(logger.ERROR))
}

func pendingOrder(sessionID string) domain.Order {
	return domain.Order{
		ID:              uuid.New(),
		OrgID:           uuid.New(),
		PriceID:         "price_1",
		StripeSessionID: sessionID,
		AmountTotal:     1000,
		Currency:        "usd",
		Status:          domain.OrderStatusPending,
	}
}

func TestInMemoryOrderRepository_CreateAndGet(t *testing.T) {
	repo := newOrderRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, pendingOrder("cs_1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}

	byID, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.StripeSessionID != "cs_1" {
		t.Errorf("GetByID() session = %s, want cs_1", byID.StripeSessionID)
	}

	bySession, err := repo.GetBySessionID(ctx, "cs_1")
	if err != nil {
		t.Fatalf("GetBySessionID() error = %v", err)
	}
	if bySession.ID != created.ID {
		t.Errorf("GetBySessionID() ID = %s, want %s", bySession.ID, created.ID)
	}
}

func TestInMemoryOrderRepository_DuplicateSessionRejected(t *testing.T) {
	repo := newOrderRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, pendingOrder("cs_dup")); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if _, err := repo.Create(ctx, pendingOrder("cs_dup")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second Create() error = %v, want ErrDuplicate", err)
	}
}

func TestInMemoryOrderRepository_GetMissing(t *testing.T) {
	repo := newOrderRepo()
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetBySessionID(ctx, "cs_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBySessionID() error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryOrderRepository_TransitionFromPending(t *testing.T) {
	repo := newOrderRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, pendingOrder("cs_t")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	applied, err := repo.TransitionFromPending(ctx, "cs_t", domain.OrderStatusPaid)
	if err != nil {
		t.Fatalf("TransitionFromPending() error = %v", err)
	}
	if !applied {
		t.Fatal("TransitionFromPending() applied = false, want true for pending order")
	}

	// Повторный переход не применяется: заказ уже в конечном статусе
	applied, err = repo.TransitionFromPending(ctx, "cs_t", domain.OrderStatusFailed)
	if err != nil {
		t.Fatalf("repeated TransitionFromPending() error = %v", err)
	}
	if applied {
		t.Error("TransitionFromPending() applied = true for terminal order, want false")
	}

	order, _ := repo.GetBySessionID(ctx, "cs_t")
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("order status = %s, want %s", order.Status, domain.OrderStatusPaid)
	}

	// Неизвестная сессия
	applied, err = repo.TransitionFromPending(ctx, "cs_unknown", domain.OrderStatusPaid)
	if err != nil {
		t.Fatalf("TransitionFromPending() unknown session error = %v", err)
	}
	if applied {
		t.Error("TransitionFromPending() applied = true for unknown session, want false")
	}
}

func TestInMemoryOrderRepository_ConcurrentTransitions(t *testing.T) {
	repo := newOrderRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, pendingOrder("cs_race")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	appliedCount := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := repo.TransitionFromPending(ctx, "cs_race", domain.OrderStatusPaid)
			if err != nil {
				t.Errorf("TransitionFromPending() error = %v", err)
				return
			}
			if applied {
				mu.Lock()
				appliedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if appliedCount != 1 {
		t.Errorf("transitions applied = %d, want exactly 1", appliedCount)
	}
}

func TestInMemoryOrderRepository_ListByOrgID(t *testing.T) {
	repo := newOrderRepo()
	ctx := context.Background()

	orgA := uuid.New()
	orgB := uuid.New()

	for i, org := range []uuid.UUID{orgA, orgA, orgB} {
		order := pendingOrder("cs_list_" + string(rune('a'+i)))
		order.OrgID = org
		if _, err := repo.Create(ctx, order); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	ordersA, err := repo.ListByOrgID(ctx, orgA)
	if err != nil {
		t.Fatalf("ListByOrgID() error = %v", err)
	}
	if len(ordersA) != 2 {
		t.Errorf("orders for orgA = %d, want 2", len(ordersA))
	}

	ordersB, _ := repo.ListByOrgID(ctx, orgB)
	if len(ordersB) != 1 {
		t.Errorf("orders for orgB = %d, want 1", len(ordersB))
	}

	empty, _ := repo.ListByOrgID(ctx, uuid.New())
	if len(empty) != 0 {
		t.Errorf("orders for unknown org = %d, want 0", len(empty))
	}
}
