package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ==============================================
// STORE CONTRACT
// ==============================================

// Store keeps sliding-window admission state per rate-limit key.
//
// Two policies are built from these three calls:
//   - admit-records-success-only: Allow on its own (generic per-IP limits)
//   - admit-records-every-attempt: Allow, then Record on a failed attempt
//     and Clear on success (per-identity login throttling)
type Store interface {
	// Allow evicts entries older than the window, then admits and records
	// the current instant iff fewer than limit entries remain. Rejected
	// calls leave the window untouched.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Record appends the current instant regardless of the limit.
	Record(ctx context.Context, key string, window time.Duration) error

	// Clear drops all recorded entries for key.
	Clear(ctx context.Context, key string) error
}

// ErrStoreUnavailable signals the backing store could not be reached.
// Callers must fail closed: a request is never admitted on error.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Key builds the canonical "{prefix}:{identifier}" rate-limit key, e.g.
// "signup:10.0.0.1" or "login-user:ana@x.com".
func Key(prefix, identifier string) string {
	return prefix + ":" + identifier
}
