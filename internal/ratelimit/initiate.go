package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/luminacare/checkout/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyInitiateClient = "checkout:initiate:%s"
	keyConfirmLock    = "checkout:confirm:%s"
)

// InitiateLimiter bounds payment initiations per client address and hands
// out the per-order dispatch lock the confirmation paths contend on. Both
// are disabled (fail-open) when redis is not configured: a lost limiter must
// not block checkout.
type InitiateLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewInitiateLimiter(cfg config.Config) *InitiateLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &InitiateLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &InitiateLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    cfg.InitiateRate,
		burst:   cfg.InitiateBurst,
		lockTTL: cfg.ConfirmLockTTL,
	}
}

func (l *InitiateLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *InitiateLimiter) AllowClient(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyInitiateClient, strings.TrimSpace(clientIP)), l.rate, l.burst)
}

func (l *InitiateLimiter) TryLockOrder(ctx context.Context, orderID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyConfirmLock, strings.TrimSpace(orderID)), l.lockTTL)
}

func (l *InitiateLimiter) ReleaseOrder(ctx context.Context, orderID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyConfirmLock, strings.TrimSpace(orderID)), token)
}
