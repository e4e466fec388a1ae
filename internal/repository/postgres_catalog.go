package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// PostgresCatalogRepository реализация репозитория каталога через PostgreSQL
type PostgresCatalogRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresCatalogRepository создает новый репозиторий каталога через PostgreSQL
func NewPostgresCatalogRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db:  db,
		log: log,
	}
}

// UpsertProduct вставляет или перезаписывает продукт в базе данных.
// ON CONFLICT перезаписывает все поля целиком: Stripe - единственный
// источник истины каталога, слияние конкурентных правок не требуется.
func (r *PostgresCatalogRepository) UpsertProduct(ctx context.Context, product domain.Product) error {
	query := `
		INSERT INTO products (id, active, name, description, image, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			active = EXCLUDED.active,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`

	metadataBytes, err := json.Marshal(product.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal product metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		product.ID,
		product.Active,
		product.Name,
		nullIfEmpty(product.Description),
		nullIfEmpty(product.Image),
		metadataBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// UpsertPrice вставляет или перезаписывает цену в базе данных
func (r *PostgresCatalogRepository) UpsertPrice(ctx context.Context, price domain.Price) error {
	query := `
		INSERT INTO prices (id, product_id, active, currency, type, unit_amount,
			interval, interval_count, trial_period_days, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			active = EXCLUDED.active,
			currency = EXCLUDED.currency,
			type = EXCLUDED.type,
			unit_amount = EXCLUDED.unit_amount,
			interval = EXCLUDED.interval,
			interval_count = EXCLUDED.interval_count,
			trial_period_days = EXCLUDED.trial_period_days,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`

	metadataBytes, err := json.Marshal(price.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal price metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		price.ID,
		price.ProductID,
		price.Active,
		price.Currency,
		string(price.Type),
		price.UnitAmount,
		price.Interval,
		price.IntervalCount,
		price.TrialPeriodDays,
		metadataBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}

	return nil
}

// GetPriceByID возвращает цену по ID из базы данных
func (r *PostgresCatalogRepository) GetPriceByID(ctx context.Context, id string) (domain.Price, error) {
	query := `
		SELECT id, product_id, active, currency, type, unit_amount,
			interval, interval_count, trial_period_days, metadata, created_at, updated_at
		FROM prices
		WHERE id = $1
	`

	price, err := scanPrice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Price{}, ErrNotFound
		}
		return domain.Price{}, fmt.Errorf("failed to get price: %w", err)
	}

	return price, nil
}

// GetProductByID возвращает продукт по ID из базы данных
func (r *PostgresCatalogRepository) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	query := `
		SELECT id, active, name, description, image, metadata, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// ListProducts возвращает все продукты каталога из базы данных
func (r *PostgresCatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, active, name, description, image, metadata, created_at, updated_at
		FROM products
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// ListPricesByProduct возвращает цены указанного продукта из базы данных
func (r *PostgresCatalogRepository) ListPricesByProduct(ctx context.Context, productID string) ([]domain.Price, error) {
	query := `
		SELECT id, product_id, active, currency, type, unit_amount,
			interval, interval_count, trial_period_days, metadata, created_at, updated_at
		FROM prices
		WHERE product_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.Price
	for rows.Next() {
		price, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, price)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}

// scanProduct читает продукт из строки результата
func scanProduct(row pgx.Row) (domain.Product, error) {
	var product domain.Product
	var description, image *string
	var metadataBytes []byte

	err := row.Scan(
		&product.ID,
		&product.Active,
		&product.Name,
		&description,
		&image,
		&metadataBytes,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}

	if description != nil {
		product.Description = *description
	}
	if image != nil {
		product.Image = *image
	}
	if len(metadataBytes) > 0 {
		if err := json.Unmarshal(metadataBytes, &product.Metadata); err != nil {
			return domain.Product{}, fmt.Errorf("failed to unmarshal product metadata: %w", err)
		}
	}

	return product, nil
}

// scanPrice читает цену из строки результата
func scanPrice(row pgx.Row) (domain.Price, error) {
	var price domain.Price
	var priceType string
	var metadataBytes []byte

	err := row.Scan(
		&price.ID,
		&price.ProductID,
		&price.Active,
		&price.Currency,
		&priceType,
		&price.UnitAmount,
		&price.Interval,
		&price.IntervalCount,
		&price.TrialPeriodDays,
		&metadataBytes,
		&price.CreatedAt,
		&price.UpdatedAt,
	)
	if err != nil {
		return domain.Price{}, err
	}

	price.Type = domain.PriceType(priceType)
	if len(metadataBytes) > 0 {
		if err := json.Unmarshal(metadataBytes, &price.Metadata); err != nil {
			return domain.Price{}, fmt.Errorf("failed to unmarshal price metadata: %w", err)
		}
	}

	return price, nil
}

// nullIfEmpty возвращает nil для пустой строки, чтобы писать NULL в nullable колонки
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
