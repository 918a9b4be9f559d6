package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"

	"julianmorley.ca/pureview/api/pkg/models"
)

const productTTL = 24 * time.Hour

var ErrCacheMiss = errors.New("cache miss")

// ProductCache stores products as JSON under product:{id}.
type ProductCache struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewProductCache(client *redisclient.Client) *ProductCache {
	return &ProductCache{client: client, ttl: productTTL}
}

func (c *ProductCache) Get(ctx context.Context, id string) (*models.Product, error) {
	productJSON, err := c.client.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redisclient.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var product models.Product
	if err := json.Unmarshal(productJSON, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return &product, nil
}

func (c *ProductCache) Set(ctx context.Context, product *models.Product) error {
	return c.SetMany(ctx, []*models.Product{product})
}

// SetMany writes every product in one transaction pipeline.
func (c *ProductCache) SetMany(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	pipe := c.client.TxPipeline()
	for _, product := range products {
		productJSON, err := json.Marshal(product)
		if err != nil {
			return fmt.Errorf("failed to marshal product %s: %w", product.ID.Hex(), err)
		}
		pipe.Set(ctx, productKey(product.ID.Hex()), productJSON, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute Redis pipeline: %w", err)
	}
	return nil
}

func (c *ProductCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to remove product from Redis cache: %w", err)
	}
	return nil
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}
