// Package ratelimit bounds per-tenant outbound messaging volume using a
// Redis hourly counter.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "pulse:ratelimit:messages"

// Decision is the outcome of a budget check. When Allowed is false, RetryAt
// is the start of the next hourly window.
type Decision struct {
	Allowed bool
	RetryAt time.Time
}

// Limiter counts messages per tenant per hour. A nil limiter or a limiter
// without a client is an optional capability that always allows; a Redis
// error fails open with a warning rather than blocking tenant automations.
type Limiter struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewLimiter(client redis.UniversalClient, logger *slog.Logger) *Limiter {
	return &Limiter{client: client, logger: logger}
}

// NewLimiterFromURL connects to Redis using a redis:// URL. An empty URL
// yields a disabled limiter.
func NewLimiterFromURL(redisURL string, logger *slog.Logger) (*Limiter, error) {
	if redisURL == "" {
		return &Limiter{logger: logger}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return &Limiter{client: redis.NewClient(opts), logger: logger}, nil
}

// Allow consumes one unit of the tenant's hourly budget. perHour <= 0 means
// the tenant has no limit configured.
func (l *Limiter) Allow(ctx context.Context, organizationID string, perHour int, now time.Time) Decision {
	if l == nil || l.client == nil || perHour <= 0 {
		return Decision{Allowed: true}
	}

	window := now.UTC().Truncate(time.Hour)
	key := fmt.Sprintf("%s:%s:%d", keyPrefix, organizationID, window.Unix())

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit check failed, allowing", "organization_id", organizationID, "error", err)

		return Decision{Allowed: true}
	}

	if count == 1 {
		// First message in the window owns the expiry.
		l.client.Expire(ctx, key, time.Hour)
	}

	if count > int64(perHour) {
		return Decision{Allowed: false, RetryAt: window.Add(time.Hour)}
	}

	return Decision{Allowed: true}
}

// Close releases the Redis connection.
func (l *Limiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}

	return l.client.Close()
}
