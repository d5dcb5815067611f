// Package resultcache caches provider search results keyed by image URL so
// repeated lookups of the same image skip the upstream call.
package resultcache

import (
	"context"
	"time"

	"github.com/snappedai/snapsearch/internal/provider"
)

const keyPrefix = "search:"

// Store is a TTL cache for search results. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the cached products for the key and whether the key was
	// present. A missing key is not an error.
	Get(ctx context.Context, key string) ([]provider.Product, bool, error)

	// Set stores the products under the key for the store's TTL.
	Set(ctx context.Context, key string, products []provider.Product) error

	// Name identifies the backend for logging and metrics.
	Name() string

	// Close releases backend resources.
	Close() error
}

// Key derives the cache key for an image URL. The URL is kept verbatim so
// distinct URLs can never collide; the prefix namespaces shared backends.
func Key(imageURL string) string {
	return keyPrefix + imageURL
}

// Config holds cache settings shared by the backends.
type Config struct {
	TTL time.Duration

	Redis RedisConfig
}

// RedisConfig holds the redis backend connection settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}
