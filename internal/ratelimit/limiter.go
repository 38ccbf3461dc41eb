// Package ratelimit implements Redis-backed token bucket rate limiting.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	callerPrefix = "ratelimit:caller:"
	ipPrefix     = "ratelimit:ip:"
	callerTTL    = 120 * time.Second
	ipTTL        = 10 * time.Second
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter checks request budgets stored in Redis.
type Limiter struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to Redis at redisURL and returns a Limiter.
func New(ctx context.Context, redisURL string, logger *slog.Logger) (*Limiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewFromClient(client, logger), nil
}

// NewFromClient wraps an existing Redis client.
func NewFromClient(client *redis.Client, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{client: client, logger: logger}
}

// Ping checks Redis connectivity.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (l *Limiter) Close() error {
	return l.client.Close()
}

// tokenBucketScript refills and consumes a bucket atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = now - last_update
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckCaller consumes one token from the bucket of an authenticated caller.
// A zero rate means unlimited.
func (l *Limiter) CheckCaller(ctx context.Context, userID string, ratePerMinute, burst int) (*Result, error) {
	if ratePerMinute <= 0 {
		return unlimited(burst), nil
	}
	key := callerPrefix + userID
	return l.check(ctx, key, float64(ratePerMinute)/60.0, burst, int(callerTTL.Seconds()))
}

// CheckIP consumes one token from the bucket of a client address.
// The address is hashed so raw IPs never reach Redis.
func (l *Limiter) CheckIP(ctx context.Context, ip string, ratePerSecond, burst int) (*Result, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst), nil
	}
	key := ipPrefix + hashIP(ip)
	return l.check(ctx, key, float64(ratePerSecond), burst, int(ipTTL.Seconds()))
}

func (l *Limiter) check(ctx context.Context, key string, rate float64, burst, ttl int) (*Result, error) {
	values, err := tokenBucketScript.Run(ctx, l.client,
		[]string{key},
		rate, burst, time.Now().Unix(), ttl,
	).Int64Slice()
	if err != nil {
		// Fail open on Redis errors.
		l.logger.Warn("rate limit check failed, allowing request",
			slog.String("error", err.Error()),
		)
		return unlimited(burst), nil
	}

	return resultFromScript(values, rate), nil
}

func resultFromScript(values []int64, rate float64) *Result {
	if len(values) < 3 {
		return unlimited(0)
	}
	return &Result{
		Allowed:    values[0] == 1,
		RetryAfter: time.Duration(values[1]) * time.Second,
		Remaining:  values[2],
		ResetAt:    time.Now().Add(time.Duration(float64(time.Second) / rate)),
	}
}

func unlimited(burst int) *Result {
	return &Result{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// hashIP creates a truncated SHA256 hash of an IP address.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
