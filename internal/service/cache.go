package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
)

const nutritionCachePrefix = "nutrition"

// RedisNutritionCache stores summaries as JSON under
// nutrition:<recipe id>:<table digest>.<ingredient fingerprint>.
type RedisNutritionCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisNutritionCache(client redis.Cmdable, ttl time.Duration) *RedisNutritionCache {
	return &RedisNutritionCache{client: client, ttl: ttl}
}

func nutritionCacheKey(recipeID uuid.UUID, version string) string {
	return fmt.Sprintf("%s:%s:%s", nutritionCachePrefix, recipeID, version)
}

func (c *RedisNutritionCache) Get(ctx context.Context, recipeID uuid.UUID, version string) (*model.NutritionSummary, error) {
	data, err := c.client.Get(ctx, nutritionCacheKey(recipeID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read nutrition cache: %w", err)
	}

	var summary model.NutritionSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode cached nutrition: %w", err)
	}
	return &summary, nil
}

func (c *RedisNutritionCache) Set(ctx context.Context, recipeID uuid.UUID, version string, summary model.NutritionSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode nutrition: %w", err)
	}
	if err := c.client.Set(ctx, nutritionCacheKey(recipeID, version), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write nutrition cache: %w", err)
	}
	return nil
}
