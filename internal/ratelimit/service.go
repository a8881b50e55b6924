package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"voiceagent-server/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const window = time.Minute

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed      bool      `json:"allowed"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"reset_at"`
	RetryAfterMs int       `json:"retry_after_ms,omitempty"`
}

// Service limits requests per key over a one minute sliding window. With Redis the
// window is shared by every API instance; without it each instance counts alone.
type Service struct {
	redis  redis.UniversalClient
	logger *observability.Logger
	now    func() time.Time

	mu    sync.Mutex
	local map[string][]time.Time
}

// NewService creates a new rate limiting service. client may be nil.
func NewService(client redis.UniversalClient, logger *observability.Logger) *Service {
	return &Service{
		redis:  client,
		logger: logger,
		now:    time.Now,
		local:  make(map[string][]time.Time),
	}
}

// CheckRateLimit records one request for key and reports whether it is within limit
// requests per minute.
func (s *Service) CheckRateLimit(ctx context.Context, key string, limit int) (RateLimitResult, error) {
	if s.redis != nil {
		result, err := s.checkRateLimitRedis(ctx, key, limit)
		if err == nil {
			return result, nil
		}
		s.logger.Warn(observability.WithFields(ctx, observability.Field{Key: "error", Value: err.Error()}),
			"Redis rate limit check failed, falling back to local window")
	}
	return s.checkRateLimitLocal(key, limit), nil
}

// checkRateLimitRedis keeps request timestamps in a sorted set per key
func (s *Service) checkRateLimitRedis(ctx context.Context, key string, limit int) (RateLimitResult, error) {
	redisKey := "rl:" + key
	now := s.now()
	nowMs := now.UnixMilli()
	windowStartMs := now.Add(-window).UnixMilli()

	if err := s.redis.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStartMs, 10)).Err(); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to trim window: %w", err)
	}

	count, err := s.redis.ZCard(ctx, redisKey).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to count requests: %w", err)
	}

	if int(count) >= limit {
		oldest, err := s.redis.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err != nil || len(oldest) == 0 {
			return denied(limit, now, now.Add(window)), nil
		}
		return denied(limit, now, time.UnixMilli(int64(oldest[0].Score)).Add(window)), nil
	}

	// Members must be unique even when two requests share a millisecond
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()
	if err := s.redis.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowMs), Member: member}).Err(); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to add request: %w", err)
	}
	if err := s.redis.Expire(ctx, redisKey, 2*window).Err(); err != nil {
		s.logger.Warn(ctx, "failed to set expiration on rate limit key")
	}

	return RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count) - 1,
		ResetAt:   now.Add(window),
	}, nil
}

func (s *Service) checkRateLimitLocal(key string, limit int) RateLimitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)
	hits := s.local[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		s.local[key] = kept
		return denied(limit, now, kept[0].Add(window))
	}

	kept = append(kept, now)
	s.local[key] = kept
	return RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(kept),
		ResetAt:   now.Add(window),
	}
}

func denied(limit int, now, resetAt time.Time) RateLimitResult {
	retryAfter := resetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return RateLimitResult{
		Allowed:      false,
		Limit:        limit,
		Remaining:    0,
		ResetAt:      resetAt,
		RetryAfterMs: int(retryAfter.Milliseconds()),
	}
}
