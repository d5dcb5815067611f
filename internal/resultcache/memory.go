package resultcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/snappedai/snapsearch/internal/provider"
)

// MemoryStore is an in-process cache backend.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory backend with the given TTL. Expired
// entries are purged at twice the TTL interval.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]provider.Product, bool, error) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	products, ok := v.([]provider.Product)
	if !ok {
		s.cache.Delete(key)
		return nil, false, nil
	}
	return products, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, products []provider.Product) error {
	s.cache.SetDefault(key, products)
	return nil
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
