package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const ratingsKey = "curequeue:ratings:v1"

// RatingsCache holds the computed doctor ratings between reviews.
type RatingsCache interface {
	Get(ctx context.Context) ([]DoctorRating, bool)
	Set(ctx context.Context, ratings []DoctorRating)
	Invalidate(ctx context.Context)
}

// RedisCache stores ratings as one JSON value. Redis errors degrade to a
// cache miss.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context) ([]DoctorRating, bool) {
	raw, err := c.client.Get(ctx, ratingsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("ratings cache get")
		}
		return nil, false
	}

	var ratings []DoctorRating
	if err := json.Unmarshal(raw, &ratings); err != nil {
		c.logger.Warn().Err(err).Msg("ratings cache decode")
		return nil, false
	}
	return ratings, true
}

func (c *RedisCache) Set(ctx context.Context, ratings []DoctorRating) {
	raw, err := json.Marshal(ratings)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ratings cache encode")
		return
	}
	if err := c.client.Set(ctx, ratingsKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("ratings cache set")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, ratingsKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("ratings cache invalidate")
	}
}

// NopCache never holds anything.
type NopCache struct{}

func (NopCache) Get(context.Context) ([]DoctorRating, bool) { return nil, false }
func (NopCache) Set(context.Context, []DoctorRating) {}
func (NopCache) Invalidate(context.Context) {}
