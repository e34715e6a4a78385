// ABOUTME: Limiter interface, errors, and key derivation for login throttling
// ABOUTME: Shared by the Redis and in-memory backends

package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/2389/studio-portal/internal/auth"
)

var (
	// ErrRateLimited is returned when a key has used up its attempt budget.
	ErrRateLimited = errors.New("too many login attempts")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("throttle backend unavailable")
)

// Limiter tracks failed attempts per key.
type Limiter interface {
	// Check returns ErrRateLimited if key is cooling down.
	Check(ctx context.Context, key string) error
	// Fail records a failed attempt and returns ErrRateLimited once the
	// budget is exhausted.
	Fail(ctx context.Context, key string) error
	// Reset forgets all failures for key.
	Reset(ctx context.Context, key string) error
}

// Config tunes a limiter.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// Defaults used when Config fields are zero.
const (
	DefaultMaxAttempts = 5
	DefaultCooldown    = 15 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// LoginKey derives the throttle key for a login email.
func LoginKey(email string) string {
	return "portal:login:" + auth.NormalizeEmail(email)
}

// Nop never limits. It is used when throttling is disabled.
type Nop struct{}

var _ Limiter = Nop{}

func (Nop) Check(context.Context, string) error { return nil }
func (Nop) Fail(context.Context, string) error  { return nil }
func (Nop) Reset(context.Context, string) error { return nil }
