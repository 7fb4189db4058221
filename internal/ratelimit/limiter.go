// Package ratelimit throttles the public endpoints: a fixed
// window per client IP and a cooldown per email address, both kept in
// Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultIPLimit       = 10
	DefaultIPWindow      = 15 * time.Minute
	DefaultEmailCooldown = 2 * time.Minute

	defaultPurpose = "default"
)

type Limiter struct {
	client        *redis.Client
	ipLimit       int
	ipWindow      time.Duration
	emailCooldown time.Duration
}

// NewLimiter creates a limiter. Zero values fall back to 10 requests per 15
// minutes and a 2 minute email cooldown.
func NewLimiter(client *redis.Client, ipLimit int, ipWindow, emailCooldown time.Duration) *Limiter {
	if ipLimit <= 0 {
		ipLimit = DefaultIPLimit
	}
	if ipWindow <= 0 {
		ipWindow = DefaultIPWindow
	}
	if emailCooldown <= 0 {
		emailCooldown = DefaultEmailCooldown
	}
	return &Limiter{
		client:        client,
		ipLimit:       ipLimit,
		ipWindow:      ipWindow,
		emailCooldown: emailCooldown,
	}
}

func ipKey(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func emailKey(email string) string {
	return fmt.Sprintf("ratelimit:email:%s", strings.ToLower(strings.TrimSpace(email)))
}

// CheckIPRateLimit reports whether ip has used up its window.
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string) (bool, error) {
	return l.CheckIPRateLimitWithPurpose(ctx, ip, defaultPurpose)
}

// CheckIPRateLimitWithPurpose is CheckIPRateLimit with a separate counter
// per purpose.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(purpose, ip)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read rate limit: %w", err)
	}
	return count >= l.ipLimit, nil
}

func (l *Limiter) RecordIPRequest(ctx context.Context, ip string) error {
	return l.RecordIPRequestWithPurpose(ctx, ip, defaultPurpose)
}

// RecordIPRequestWithPurpose counts one request. The window starts at the
// first request.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(purpose, ip)

	pipe := l.client.TxPipeline()
	pipe.SetNX(ctx, key, 0, l.ipWindow)
	pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// CheckEmailCooldown reports whether an email was sent to address recently.
func (l *Limiter) CheckEmailCooldown(ctx context.Context, address string) (bool, error) {
	n, err := l.client.Exists(ctx, emailKey(address)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return n > 0, nil
}

func (l *Limiter) SetEmailCooldown(ctx context.Context, address string) error {
	if err := l.client.Set(ctx, emailKey(address), "1", l.emailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}

// Noop never limits. Used when rate limiting is disabled.
type Noop struct{}

func (Noop) CheckIPRateLimit(context.Context, string) (bool, error) { return false, nil }
func (Noop) CheckIPRateLimitWithPurpose(context.Context, string, string) (bool, error) {
	return false, nil
}
func (Noop) RecordIPRequest(context.Context, string) error                    { return nil }
func (Noop) RecordIPRequestWithPurpose(context.Context, string, string) error { return nil }
func (Noop) CheckEmailCooldown(context.Context, string) (bool, error)         { return false, nil }
func (Noop) SetEmailCooldown(context.Context, string) error                   { return nil }
