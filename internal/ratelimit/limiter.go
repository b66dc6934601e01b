package ratelimit

import "context"

// RateLimiter controls record-operation throughput per install.
type RateLimiter interface {
	Allow(ctx context.Context, installID string) (bool, error)
}
