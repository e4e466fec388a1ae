package repository

import (
	"context"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// CachedCatalogRepository реализует CatalogRepository с кешированием горячих
// чтений (поиск цены при создании checkout-сессии). Ошибки кеша не фатальны:
// при любой проблеме с Redis идем в основное хранилище.
type CachedCatalogRepository struct {
	repo  CatalogRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedCatalogRepository создает новый репозиторий каталога с кешированием
func NewCachedCatalogRepository(
	repo CatalogRepository,
	cache *RedisCacheRepository,
	log *logger.Logger,
) CatalogRepository {
	return &CachedCatalogRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// UpsertProduct перезаписывает продукт в БД и инвалидирует кеш
func (r *CachedCatalogRepository) UpsertProduct(ctx context.Context, product domain.Product) error {
	if err := r.repo.UpsertProduct(ctx, product); err != nil {
		return err
	}

	if err := r.cache.DeleteCachedProduct(ctx, product.ID); err != nil {
		r.log.Warnw("Failed to invalidate product cache after upsert", "error", err, "productID", product.ID)
	}

	return nil
}

// UpsertPrice перезаписывает цену в БД и инвалидирует кеш
func (r *CachedCatalogRepository) UpsertPrice(ctx context.Context, price domain.Price) error {
	if err := r.repo.UpsertPrice(ctx, price); err != nil {
		return err
	}

	if err := r.cache.DeleteCachedPrice(ctx, price.ID); err != nil {
		r.log.Warnw("Failed to invalidate price cache after upsert", "error", err, "priceID", price.ID)
	}

	return nil
}

// GetPriceByID получает цену сначала из кеша, потом из БД
func (r *CachedCatalogRepository) GetPriceByID(ctx context.Context, id string) (domain.Price, error) {
	cached, err := r.cache.GetCachedPrice(ctx, id)
	if err != nil {
		r.log.Warnw("Error getting price from cache", "error", err, "priceID", id)
	}

	if cached != nil {
		return *cached, nil
	}

	price, err := r.repo.GetPriceByID(ctx, id)
	if err != nil {
		return domain.Price{}, err
	}

	if err := r.cache.CachePrice(ctx, price); err != nil {
		r.log.Warnw("Failed to cache price after fetching", "error", err, "priceID", id)
	}

	return price, nil
}

// GetProductByID получает продукт сначала из кеша, потом из БД
func (r *CachedCatalogRepository) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	cached, err := r.cache.GetCachedProduct(ctx, id)
	if err != nil {
		r.log.Warnw("Error getting product from cache", "error", err, "productID", id)
	}

	if cached != nil {
		return *cached, nil
	}

	product, err := r.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if err := r.cache.CacheProduct(ctx, product); err != nil {
		r.log.Warnw("Failed to cache product after fetching", "error", err, "productID", id)
	}

	return product, nil
}

// ListProducts всегда читает из основного хранилища
func (r *CachedCatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return r.repo.ListProducts(ctx)
}

// ListPricesByProduct всегда читает из основного хранилища
func (r *CachedCatalogRepository) ListPricesByProduct(ctx context.Context, productID string) ([]domain.Price, error) {
	return r.repo.ListPricesByProduct(ctx, productID)
}
