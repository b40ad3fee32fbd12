package ratelimit

import (
	"context"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/j4b6ski/oioioi/cmd/server/internal/ratelimit")

const window = time.Minute

// Fixed window limiter shared by every server instance through redis
type RedisLimiterStore struct {
	db         *redis.Client
	limiterKey string
	perMinute  int64
	failOpen   bool
}

var _ middleware.RateLimiterStore = (*RedisLimiterStore)(nil)

type RedisLimiterConfig struct {
	RedisClient *redis.Client
	LimiterKey  string
	PerMinute   int64
	FailOpen    bool
}

func (store *RedisLimiterStore) key(identifier string) string {
	return "contestengine-ratelimit-" + store.limiterKey + "-" + identifier
}

func (store *RedisLimiterStore) Allow(identifier string) (bool, error) {
	ctx, span := tracer.Start(context.Background(), "RedisLimiterStore.Allow")
	defer span.End()

	span.SetAttributes(
		attribute.String("limiter", store.limiterKey),
		attribute.String("identifier", identifier),
	)

	key := store.key(identifier)

	// SETNX opens the window once; every request then takes one token
	if err := store.db.SetNX(ctx, key, store.perMinute, window).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open rate limit window")
		return store.failOpen, err
	}

	left, err := store.db.Decr(ctx, key).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to take rate limit token")
		return store.failOpen, err
	}

	span.SetAttributes(attribute.Int64("left", left))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "checked rate limit")
	return left >= 0, nil
}

func NewRedisLimitStore(config RedisLimiterConfig) (store *RedisLimiterStore) {
	return &RedisLimiterStore{
		perMinute:  config.PerMinute,
		db:         config.RedisClient,
		limiterKey: config.LimiterKey,
		failOpen:   config.FailOpen,
	}
}
