package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// CatalogRepository интерфейс для работы с зеркалом каталога Stripe
type CatalogRepository interface {
	// UpsertProduct вставляет или перезаписывает продукт по provider id
	UpsertProduct(ctx context.Context, product domain.Product) error

	// UpsertPrice вставляет или перезаписывает цену по provider id
	UpsertPrice(ctx context.Context, price domain.Price) error

	// GetPriceByID возвращает цену по provider id
	GetPriceByID(ctx context.Context, id string) (domain.Price, error)

	// GetProductByID возвращает продукт по provider id
	GetProductByID(ctx context.Context, id string) (domain.Product, error)

	// ListProducts возвращает все продукты каталога
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// ListPricesByProduct возвращает цены указанного продукта
	ListPricesByProduct(ctx context.Context, productID string) ([]domain.Price, error)
}

// InMemoryCatalogRepository реализация репозитория каталога в памяти
type InMemoryCatalogRepository struct {
	products map[string]domain.Product
	prices   map[string]domain.Price
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryCatalogRepository создает новый репозиторий каталога в памяти
func NewInMemoryCatalogRepository(log *logger.Logger) *InMemoryCatalogRepository {
	return &InMemoryCatalogRepository{
		products: make(map[string]domain.Product),
		prices:   make(map[string]domain.Price),
		log:      log,
	}
}

// UpsertProduct вставляет или перезаписывает продукт.
// Семантика last-write-wins: Stripe - единственный источник истины каталога.
func (r *InMemoryCatalogRepository) UpsertProduct(ctx context.Context, product domain.Product) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.products[product.ID]
	if exists {
		product.CreatedAt = existing.CreatedAt
	} else {
		product.CreatedAt = time.Now()
	}
	product.UpdatedAt = time.Now()

	r.products[product.ID] = product

	return nil
}

// UpsertPrice вставляет или перезаписывает цену
func (r *InMemoryCatalogRepository) UpsertPrice(ctx context.Context, price domain.Price) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.prices[price.ID]
	if exists {
		price.CreatedAt = existing.CreatedAt
	} else {
		price.CreatedAt = time.Now()
	}
	price.UpdatedAt = time.Now()

	r.prices[price.ID] = price

	return nil
}

// GetPriceByID возвращает цену по ID
func (r *InMemoryCatalogRepository) GetPriceByID(ctx context.Context, id string) (domain.Price, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	price, exists := r.prices[id]
	if !exists {
		return domain.Price{}, ErrNotFound
	}

	return price, nil
}

// GetProductByID возвращает продукт по ID
func (r *InMemoryCatalogRepository) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return domain.Product{}, ErrNotFound
	}

	return product, nil
}

// ListProducts возвращает все продукты каталога
func (r *InMemoryCatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	products := make([]domain.Product, 0, len(r.products))
	for _, product := range r.products {
		products = append(products, product)
	}

	// Стабильный порядок для предсказуемых ответов API
	sort.Slice(products, func(i, j int) bool {
		return products[i].ID < products[j].ID
	})

	return products, nil
}

// ListPricesByProduct возвращает цены указанного продукта
func (r *InMemoryCatalogRepository) ListPricesByProduct(ctx context.Context, productID string) ([]domain.Price, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var prices []domain.Price
	for _, price := range r.prices {
		if price.ProductID == productID {
			prices = append(prices, price)
		}
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].ID < prices[j].ID
	})

	return prices, nil
}
