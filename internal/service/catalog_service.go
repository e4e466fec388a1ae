package service

import (
	"context"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/metrics"
	"github.com/sitegrid/commerce-service/internal/repository"
	"github.com/sitegrid/commerce-service/internal/stripe"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// CatalogService интерфейс сервиса синхронизации каталога
type CatalogService interface {
	// Sync выполняет один проход синхронизации каталога из Stripe
	Sync(ctx context.Context) (domain.SyncResult, error)

	// ListProducts возвращает продукты локального зеркала каталога
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// ListPricesByProduct возвращает цены продукта из локального зеркала
	ListPricesByProduct(ctx context.Context, productID string) ([]domain.Price, error)
}

// catalogService реализация сервиса синхронизации каталога
type catalogService struct {
	catalog repository.CatalogRepository
	client  stripe.Client
	metrics metrics.CommerceMetrics
	log     *logger.Logger
}

// NewCatalogService создает новый сервис синхронизации каталога
func NewCatalogService(
	catalog repository.CatalogRepository,
	client stripe.Client,
	m metrics.CommerceMetrics,
	log *logger.Logger,
) CatalogService {
	return &catalogService{
		catalog: catalog,
		client:  client,
		metrics: m,
		log:     log,
	}
}

// Sync выполняет один проход синхронизации каталога из Stripe.
// Ошибка upsert-а отдельной записи логируется и пропускается: следующий
// проход доведет пропущенную строку. Проход не транзакционен по всем строкам.
func (s *catalogService) Sync(ctx context.Context) (domain.SyncResult, error) {
	products, err := s.client.ListActiveProducts(ctx)
	if err != nil {
		return domain.SyncResult{}, domain.NewExternalServiceError("stripe", "ListActiveProducts", "failed to fetch products", err)
	}

	prices, err := s.client.ListActivePrices(ctx)
	if err != nil {
		return domain.SyncResult{}, domain.NewExternalServiceError("stripe", "ListActivePrices", "failed to fetch prices", err)
	}

	var result domain.SyncResult

	for _, product := range products {
		if err := s.catalog.UpsertProduct(ctx, product); err != nil {
			s.log.Errorw("Failed to upsert product, skipping", "productID", product.ID, "error", err)
			result.Skipped++
			continue
		}
		result.ProductsUpserted++
	}

	for _, price := range prices {
		if err := s.catalog.UpsertPrice(ctx, price); err != nil {
			s.log.Errorw("Failed to upsert price, skipping", "priceID", price.ID, "error", err)
			result.Skipped++
			continue
		}
		result.PricesUpserted++
	}

	s.metrics.ObserveCatalogSync(result.ProductsUpserted, result.PricesUpserted, result.Skipped)
	s.log.Infow("Catalog sync completed",
		"products", result.ProductsUpserted,
		"prices", result.PricesUpserted,
		"skipped", result.Skipped,
	)

	return result, nil
}

// ListProducts возвращает продукты локального зеркала каталога
func (s *catalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.catalog.ListProducts(ctx)
}

// ListPricesByProduct возвращает цены продукта из локального зеркала
func (s *catalogService) ListPricesByProduct(ctx context.Context, productID string) ([]domain.Price, error) {
	return s.catalog.ListPricesByProduct(ctx, productID)
}
