package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/copperhq/copper/internal/config"
)

const (
	keyQueryTenant = "copper:ratelimit:query:%s"
	keyRebuildLock = "copper:lock:rebuild"

	// A rebuild that outlives this is assumed dead and loses its lock.
	rebuildLockTTL = 5 * time.Minute
)

// QueryLimiter throttles analytical reads per tenant and arbitrates the
// admin rebuild across replicas. A nil limiter (rate limiting disabled)
// allows everything.
type QueryLimiter struct {
	enabled bool

	bucket *TokenBucket
	lock   *Lock

	rate  float64
	burst int
}

func NewQueryLimiter(cfg config.Config) (*QueryLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.QueryRate <= 0 || limitCfg.QueryBurst <= 0 {
		return nil, errors.New("query rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: limitCfg.RedisPassword,
		DB:       limitCfg.RedisDB,
	})

	return &QueryLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		lock:    NewLock(client),
		rate:    limitCfg.QueryRate,
		burst:   limitCfg.QueryBurst,
	}, nil
}

func (l *QueryLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowTenant takes one token from the tenant's query bucket.
func (l *QueryLimiter) AllowTenant(ctx context.Context, tenantID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyQueryTenant, strings.TrimSpace(tenantID)), l.rate, l.burst)
}

// TryLockRebuild claims the cross-replica rebuild lock.
func (l *QueryLimiter) TryLockRebuild(ctx context.Context) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lock.TryAcquire(ctx, keyRebuildLock, rebuildLockTTL)
}

// ReleaseRebuild frees the rebuild lock taken by TryLockRebuild.
func (l *QueryLimiter) ReleaseRebuild(ctx context.Context, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.lock.Release(ctx, keyRebuildLock, token)
}
