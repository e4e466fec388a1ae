package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

const (
	// Префиксы ключей для различных типов данных
	priceKeyPrefix   = "price:"
	productKeyPrefix = "product:"

	// TTL для кэша каталога
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository реализует кеширование каталога с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CachePrice кеширует цену в Redis
func (r *RedisCacheRepository) CachePrice(ctx context.Context, price domain.Price) error {
	key := priceKeyPrefix + price.ID

	data, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("failed to marshal price: %w", err)
	}

	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		r.log.Errorw("Failed to cache price in Redis", "error", err, "priceID", price.ID)
		return fmt.Errorf("failed to cache price: %w", err)
	}

	r.log.Debugw("Price cached successfully", "priceID", price.ID)
	return nil
}

// GetCachedPrice получает цену из кеша.
// Возвращает nil без ошибки, если ключа нет.
func (r *RedisCacheRepository) GetCachedPrice(ctx context.Context, priceID string) (*domain.Price, error) {
	key := priceKeyPrefix + priceID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			r.log.Debugw("Price not found in cache", "priceID", priceID)
			return nil, nil
		}
		r.log.Errorw("Error getting price from Redis", "error", err, "priceID", priceID)
		return nil, fmt.Errorf("failed to get price from cache: %w", err)
	}

	var price domain.Price
	if err := json.Unmarshal(data, &price); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached price: %w", err)
	}

	r.log.Debugw("Price retrieved from cache", "priceID", priceID)
	return &price, nil
}

// DeleteCachedPrice удаляет цену из кеша
func (r *RedisCacheRepository) DeleteCachedPrice(ctx context.Context, priceID string) error {
	key := priceKeyPrefix + priceID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorw("Failed to delete price from cache", "error", err, "priceID", priceID)
		return fmt.Errorf("failed to delete price from cache: %w", err)
	}

	return nil
}

// CacheProduct кеширует продукт в Redis
func (r *RedisCacheRepository) CacheProduct(ctx context.Context, product domain.Product) error {
	key := productKeyPrefix + product.ID

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		r.log.Errorw("Failed to cache product in Redis", "error", err, "productID", product.ID)
		return fmt.Errorf("failed to cache product: %w", err)
	}

	return nil
}

// GetCachedProduct получает продукт из кеша
func (r *RedisCacheRepository) GetCachedProduct(ctx context.Context, productID string) (*domain.Product, error) {
	key := productKeyPrefix + productID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product from cache: %w", err)
	}

	var product domain.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached product: %w", err)
	}

	return &product, nil
}

// DeleteCachedProduct удаляет продукт из кеша
func (r *RedisCacheRepository) DeleteCachedProduct(ctx context.Context, productID string) error {
	key := productKeyPrefix + productID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete product from cache: %w", err)
	}

	return nil
}
