package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter is a sliding-window limiter over Redis sorted sets. Every call is
// recorded, rejected ones included, so a client hammering the API stays
// blocked until it backs off for a full window.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

func (l Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Allow records one hit for key and reports whether it is within max per window.
// A nil client or non-positive bounds disable limiting.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := l.now()
	d := Decision{Allowed: true, Limit: max, Remaining: max, ResetAt: now.Add(window)}
	if l.Client == nil || max <= 0 || window <= 0 {
		return d, nil
	}

	redisKey := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Limit: max, ResetAt: d.ResetAt}, err
	}

	current := int(count.Val())
	d.Allowed = current <= max
	d.Remaining = max - current
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}
