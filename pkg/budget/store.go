package budget

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("budget store closed")

// Store holds day counters. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the counter value, or 0 when it does not exist.
	Get(ctx context.Context, key string) (int64, error)
	// IncrBy adds n to the counter, (re)setting its time to live, and
	// returns the new value.
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error)
	Close() error
}
