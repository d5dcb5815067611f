package resultcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snappedai/snapsearch/internal/provider"
)

type stubSearcher struct {
	products []provider.Product
	err      error
	calls    int
}

func (s *stubSearcher) Search(_ context.Context, _ string) ([]provider.Product, error) {
	s.calls++
	return s.products, s.err
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]provider.Product, bool, error) {
	return nil, false, errors.New("backend down")
}
func (failingStore) Set(context.Context, string, []provider.Product) error {
	return errors.New("backend down")
}
func (failingStore) Name() string { return "failing" }
func (failingStore) Close() error { return nil }

func TestCachedSearcherHitSkipsProvider(t *testing.T) {
	t.Parallel()

	stub := &stubSearcher{products: sampleProducts()}
	cs := NewCachedSearcher(stub, NewMemoryStore(time.Minute), nil)
	ctx := context.Background()

	first, err := cs.Search(ctx, "https://cdn.example/a.jpg")
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, stub.calls)

	second, err := cs.Search(ctx, "https://cdn.example/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls, "second lookup must be served from cache")
}

func TestCachedSearcherEmptyResultNotCached(t *testing.T) {
	t.Parallel()

	stub := &stubSearcher{products: []provider.Product{}}
	cs := NewCachedSearcher(stub, NewMemoryStore(time.Minute), nil)
	ctx := context.Background()

	_, err := cs.Search(ctx, "https://cdn.example/a.jpg")
	require.NoError(t, err)
	_, err = cs.Search(ctx, "https://cdn.example/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls, "empty results must not be cached")
}

func TestCachedSearcherDegradesOnStoreFailure(t *testing.T) {
	t.Parallel()

	stub := &stubSearcher{products: sampleProducts()}
	cs := NewCachedSearcher(stub, failingStore{}, nil)

	products, err := cs.Search(context.Background(), "https://cdn.example/a.jpg")
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, 1, stub.calls)
}

func TestCachedSearcherPropagatesSearchError(t *testing.T) {
	t.Parallel()

	stub := &stubSearcher{err: errors.New("provider exploded")}
	cs := NewCachedSearcher(stub, NewMemoryStore(time.Minute), nil)

	_, err := cs.Search(context.Background(), "https://cdn.example/a.jpg")
	assert.Error(t, err)
}
