package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/mindmesh-backend/internal/metrics"
	"github.com/AnshRaj112/mindmesh-backend/pkg/clientip"
)

const (
	RateLimitWindow      = 60 * time.Second
	RateLimitMaxRequests = 120
	RateLimitKeyPrefix   = "ratelimit:"
	BlockedIPKeyPrefix   = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked after exceeding
	// the window limit.
	BlockedIPDuration = 15 * time.Minute
)

// RedisRateLimiter counts requests per client IP in Redis so the limit
// holds across server instances. It fails open when Redis is unavailable.
type RedisRateLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
	block  time.Duration
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		max:    RateLimitMaxRequests,
		window: RateLimitWindow,
		block:  BlockedIPDuration,
	}
}

// hit records one request from ip and returns the count in the current
// window.
func (l *RedisRateLimiter) hit(ctx context.Context, ip string) (int64, error) {
	key := RateLimitKeyPrefix + ip
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	// A key without expiry is a fresh window.
	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, err
		}
	}
	return incr.Val(), nil
}

func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientip.RealClientIP(r)
		blockedKey := BlockedIPKeyPrefix + ip

		isBlocked, err := l.client.Exists(ctx, blockedKey).Result()
		if err == nil && isBlocked > 0 {
			metrics.RateLimited.WithLabelValues("ip_blocked").Inc()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Your IP has been temporarily blocked due to excessive requests. Please try again later."}`))
			return
		}

		count, err := l.hit(ctx, ip)
		if err != nil {
			slog.Debug("rate limit unavailable, allowing request", "ip", ip, "err", err)
			next.ServeHTTP(w, r)
			return
		}

		if count > l.max {
			if err := l.client.Set(ctx, blockedKey, "1", l.block).Err(); err != nil {
				slog.Warn("failed to block IP", "ip", ip, "err", err)
			}
			slog.Warn("IP blocked for excessive requests", "ip", ip, "count", count)
			metrics.RateLimited.WithLabelValues("ip").Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(l.block.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Please try again later.","retry_after":%d}`, int(l.block.Seconds()))))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(l.max-count, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(l.window).Unix(), 10))
		next.ServeHTTP(w, r)
	})
}

// Unblock removes ip from the blocked list.
func (l *RedisRateLimiter) Unblock(ctx context.Context, ip string) error {
	return l.client.Del(ctx, BlockedIPKeyPrefix+ip).Err()
}

// IsBlocked reports whether ip is currently blocked.
func (l *RedisRateLimiter) IsBlocked(ctx context.Context, ip string) (bool, error) {
	n, err := l.client.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	return n > 0, err
}
