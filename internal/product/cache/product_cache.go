package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/s223973381/ishika-sit722/internal/product/repository"
	"github.com/s223973381/ishika-sit722/shared/logs"
)

const productKeyPrefix = "product:"

// ProductCache is a read-through cache in front of the products table.
// A miss or any redis error falls back to the database; staleness is bounded
// by the TTL and by explicit invalidation on every stock or CRUD mutation.
type ProductCache struct {
	client *redis.Client
	logger logs.Logger
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, logger logs.Logger, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func (c *ProductCache) Get(ctx context.Context, id string) (repository.Product, bool) {
	data, err := c.client.Get(ctx, productKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("product cache read failed", "error", err, "productId", id)
		}
		return repository.Product{}, false
	}

	var product repository.Product
	if err := json.Unmarshal(data, &product); err != nil {
		c.logger.Warn("product cache entry corrupted, dropping", "error", err, "productId", id)
		c.client.Del(ctx, productKeyPrefix+id)
		return repository.Product{}, false
	}

	return product, true
}

func (c *ProductCache) Set(ctx context.Context, product repository.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		c.logger.Warn("failed to marshal product for cache", "error", err)
		return
	}

	if err := c.client.Set(ctx, productKeyPrefix+product.ID.String(), data, c.ttl).Err(); err != nil {
		c.logger.Warn("product cache write failed", "error", err, "productId", product.ID.String())
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, productIDs ...string) {
	if len(productIDs) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for _, id := range productIDs {
		pipe.Del(ctx, productKeyPrefix+id)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("failed to invalidate cache for products", "error", err, "productIDs", productIDs)
	} else {
		c.logger.Debug("cache invalidated for products", "productIDs", productIDs)
	}
}
