package ratelimit

import "context"

// RateLimiter meters gateway sends per channel label ("whatsapp").
// Wait blocks until a send slot is available or ctx ends.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
