// internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a token is absent or expired.
var ErrNotFound = errors.New("token not found")

// TokenCache holds short-lived verification secrets (email tokens, phone
// OTP codes). Tokens are single-use: Consume returns the stored value and
// removes it in one step.
type TokenCache interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Consume(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
