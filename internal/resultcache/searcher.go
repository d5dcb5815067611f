package resultcache

import (
	"context"

	"github.com/snappedai/snapsearch/internal/logging"
	"github.com/snappedai/snapsearch/internal/observability"
	"github.com/snappedai/snapsearch/internal/provider"
)

// CachedSearcher wraps a provider searcher with a result cache. Cache
// failures never fail a search; the wrapper falls back to the direct call.
type CachedSearcher struct {
	searcher provider.Searcher
	store    Store
	metrics  *observability.Metrics
}

// NewCachedSearcher wraps the searcher with the given store. The metrics
// parameter may be nil.
func NewCachedSearcher(searcher provider.Searcher, store Store, metrics *observability.Metrics) *CachedSearcher {
	return &CachedSearcher{searcher: searcher, store: store, metrics: metrics}
}

// Search returns cached results when present, otherwise performs the search
// and caches a non-empty result. Empty results are not cached so transient
// provider failures do not mask later successes.
func (cs *CachedSearcher) Search(ctx context.Context, imageURL string) ([]provider.Product, error) {
	key := Key(imageURL)

	products, found, err := cs.store.Get(ctx, key)
	switch {
	case err != nil:
		cs.countCacheOp("error")
		logging.Structured().Warn("result cache lookup failed, searching directly",
			"backend", cs.store.Name(), "error", err)
	case found:
		cs.countCacheOp("hit")
		return products, nil
	default:
		cs.countCacheOp("miss")
	}

	products, err = cs.searcher.Search(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	if len(products) > 0 {
		if err := cs.store.Set(ctx, key, products); err != nil {
			cs.countCacheOp("error")
			logging.Structured().Warn("result cache store failed",
				"backend", cs.store.Name(), "error", err)
		}
	}
	return products, nil
}

func (cs *CachedSearcher) countCacheOp(result string) {
	if cs.metrics != nil {
		cs.metrics.CacheOps.WithLabelValues(cs.store.Name(), result).Inc()
	}
}
