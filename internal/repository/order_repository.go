package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// OrderRepository интерфейс для работы с заказами
type OrderRepository interface {
	// Create создает новый заказ; stripe_session_id должен быть уникален
	Create(ctx context.Context, order domain.Order) (domain.Order, error)

	// GetByID возвращает заказ по внутреннему ID
	GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error)

	// GetBySessionID возвращает заказ по ID checkout-сессии
	GetBySessionID(ctx context.Context, sessionID string) (domain.Order, error)

	// ListByOrgID возвращает заказы организации
	ListByOrgID(ctx context.Context, orgID uuid.UUID) ([]domain.Order, error)

	// TransitionFromPending условно переводит заказ из pending в указанный
	// статус. Возвращает false, если заказ не найден или уже не pending -
	// дубликаты и гонки доставки сходятся к одному и тому же результату.
	TransitionFromPending(ctx context.Context, sessionID string, to domain.OrderStatus) (bool, error)
}

// InMemoryOrderRepository реализация репозитория заказов в памяти
type InMemoryOrderRepository struct {
	orders    map[uuid.UUID]domain.Order
	bySession map[string]uuid.UUID
	mutex     sync.RWMutex
	log       *logger.Logger
}

// NewInMemoryOrderRepository создает новый репозиторий заказов в памяти
func NewInMemoryOrderRepository(log *logger.Logger) *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders:    make(map[uuid.UUID]domain.Order),
		bySession: make(map[string]uuid.UUID),
		log:       log,
	}
}

// Create создает новый заказ
func (r *InMemoryOrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.bySession[order.StripeSessionID]; exists {
		return domain.Order{}, ErrDuplicate
	}

	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	r.orders[order.ID] = order
	r.bySession[order.StripeSessionID] = order.ID

	return order, nil
}

// GetByID возвращает заказ по внутреннему ID
func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return domain.Order{}, ErrNotFound
	}

	return order, nil
}

// GetBySessionID возвращает заказ по ID checkout-сессии
func (r *InMemoryOrderRepository) GetBySessionID(ctx context.Context, sessionID string) (domain.Order, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.bySession[sessionID]
	if !exists {
		return domain.Order{}, ErrNotFound
	}

	return r.orders[id], nil
}

// ListByOrgID возвращает заказы организации
func (r *InMemoryOrderRepository) ListByOrgID(ctx context.Context, orgID uuid.UUID) ([]domain.Order, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var orders []domain.Order
	for _, order := range r.orders {
		if order.OrgID == orgID {
			orders = append(orders, order)
		}
	}

	// Новые заказы в начале списка
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

// TransitionFromPending условно переводит заказ из pending в указанный статус.
// Терминальные статусы не переписываются; повторная доставка того же события
// не производит второй записи.
func (r *InMemoryOrderRepository) TransitionFromPending(ctx context.Context, sessionID string, to domain.OrderStatus) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	id, exists := r.bySession[sessionID]
	if !exists {
		return false, nil
	}

	order := r.orders[id]
	if order.Status != domain.OrderStatusPending {
		return false, nil
	}

	order.Status = to
	order.UpdatedAt = time.Now()
	r.orders[id] = order

	return true, nil
}
