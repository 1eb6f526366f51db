// Package ratelimit provides a fixed-window request limiter backed by Redis,
// used to slow down abuse of the credential endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ipLimit requests per ipWindow, per IP and purpose
	ipLimit  = 10
	ipWindow = 15 * time.Minute

	// emailCooldown throttles repeated mail-sending requests per address
	emailCooldown = 2 * time.Minute
)

// Limiter tracks request counts in Redis. Counters expire with their window,
// so there is no cleanup job.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func ipKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func emailKey(email string) string {
	return fmt.Sprintf("ratelimit:email_cooldown:%s", email)
}

// CheckIPRateLimitWithPurpose reports whether the IP has exhausted its window
// for the given purpose. It does not consume a slot.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(ip, purpose)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= ipLimit, nil
}

// CheckIPRateLimit is CheckIPRateLimitWithPurpose with a shared purpose bucket.
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string) (bool, error) {
	return l.CheckIPRateLimitWithPurpose(ctx, ip, "general")
}

// RecordIPRequestWithPurpose consumes one slot from the IP's window.
// The window starts with the first request and expires as a whole.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(ip, purpose)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, ipWindow).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return nil
}

// RecordIPRequest is RecordIPRequestWithPurpose with a shared purpose bucket.
func (l *Limiter) RecordIPRequest(ctx context.Context, ip string) error {
	return l.RecordIPRequestWithPurpose(ctx, ip, "general")
}

// CheckEmailCooldown reports whether the address is still inside its cooldown.
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	err := l.client.Get(ctx, emailKey(email)).Err()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read email cooldown: %w", err)
	}

	return true, nil
}

// SetEmailCooldown starts the cooldown window for an address.
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, emailKey(email), "1", emailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}
