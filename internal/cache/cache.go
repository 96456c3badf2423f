package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrStore is returned when the backing store fails a get or set.
	ErrStore = errors.New("cache store error")
)

// Store is a TTL'd key-value store shared by the token cache and the
// support API response cache. Implementations must be safe for use from
// concurrent lookups. Expired entries behave as absent; no background
// sweeping is required. Concurrent misses on the same key may each fetch
// upstream, that is tolerated.
type Store interface {
	// Get returns the value for key and true, or nil and false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key for the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key immediately.
	Delete(ctx context.Context, key string) error
}
