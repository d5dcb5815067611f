package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snappedai/snapsearch/internal/httpclient"
)

const testImageURL = "https://cdn.example/uploads/photo.jpg"

func newTestClient(t *testing.T, cfg Config) (*Client, *httpmock.MockTransport) {
	t.Helper()

	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://serpapi.test"
	}
	// Keep retry sleeps negligible.
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	if cfg.RateLimitWait == 0 {
		cfg.RateLimitWait = time.Millisecond
	}

	hc := httpclient.New(&httpclient.Config{DefaultTimeout: 5 * time.Second})
	t.Cleanup(hc.Close)

	transport := httpmock.NewMockTransport()
	hc.SetTransport(transport)

	return NewClient(cfg, hc, nil), transport
}

func responderJSON(status int, body string) httpmock.Responder {
	return httpmock.NewStringResponder(status, body)
}

func TestSearchMissingAPIKeySkipsNetwork(t *testing.T) {
	t.Parallel()

	hc := httpclient.New(nil)
	t.Cleanup(hc.Close)
	transport := httpmock.NewMockTransport()
	hc.SetTransport(transport)

	client := NewClient(Config{BaseURL: "https://serpapi.test"}, hc, nil)
	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestSearchSuccessBothChannels(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		responderJSON(http.StatusOK, `{
			"visual_matches": [
				{"title": "Nike Air Max 90", "link": "https://shop.example/1",
				 "price": {"value": "$120.00"}}
			],
			"shopping_results": [
				{"title": "Leather Messenger Bag", "link": "https://shop.example/2",
				 "source": "BagWorld", "price": "$75.00"}
			]
		}`))

	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, SourceVisualMatches, products[0].Source)
	assert.Equal(t, SourceShoppingResults, products[1].Source)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestSearchDropsPricelessProducts(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		responderJSON(http.StatusOK, `{
			"visual_matches": [
				{"title": "Priced Widget", "price": {"value": "$10.00"}},
				{"title": "Mystery Gadget Without Cost"}
			]
		}`))

	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Priced Widget", products[0].Title)
}

func TestSearchCapsResults(t *testing.T) {
	t.Parallel()

	titles := []string{
		"Nike Air Max 90 Sneakers",
		"Leather Messenger Bag Brown",
		"Stainless Steel Water Bottle",
		"Wireless Gaming Mouse RGB",
		"Cotton Crew Neck T-Shirt",
	}
	items := ""
	for i, title := range titles {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"title": %q, "price": {"value": "$%d.00"}}`, title, 10+i)
	}

	client, transport := newTestClient(t, Config{MaxResults: 3})
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		responderJSON(http.StatusOK, `{"visual_matches": [`+items+`]}`))

	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestSearchRateLimitedThreeTimesReturnsEmpty(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		responderJSON(http.StatusTooManyRequests, `{"error": "rate limited"}`))

	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, maxAttempts, transport.GetTotalCallCount())
}

func TestSearchRateLimitThenSuccess(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	calls := 0
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				resp := httpmock.NewStringResponse(http.StatusTooManyRequests, "")
				resp.Header.Set("Retry-After", "0")
				return resp, nil
			}
			return httpmock.NewStringResponse(http.StatusOK,
				`{"visual_matches": [{"title": "Widget", "price": {"value": "$5"}}]}`), nil
		})

	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 2, calls)
}

func TestSearchClientErrorReturnsEmptyImmediately(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		responderJSON(http.StatusUnauthorized, `{"error": "bad key"}`))

	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestSearchServerErrorExhaustsRetries(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		responderJSON(http.StatusInternalServerError, "boom"))

	products, err := client.Search(context.Background(), testImageURL)
	require.Error(t, err)
	assert.Nil(t, products)
	assert.Equal(t, maxAttempts, transport.GetTotalCallCount())
}

func TestSearchTransportErrorExhaustsRetries(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	calls := 0
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		func(req *http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("dial timeout")
		})

	_, err := client.Search(context.Background(), testImageURL)
	require.Error(t, err)
	assert.Equal(t, maxAttempts, calls, "no fourth attempt allowed")
}

func TestSearchTransportErrorThenSuccess(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	calls := 0
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("connection reset")
			}
			return httpmock.NewStringResponse(http.StatusOK,
				`{"visual_matches": [{"title": "Widget", "price": {"value": "$5"}}]}`), nil
		})

	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 2, calls)
}

func TestSearchProviderErrorFieldReturnsEmpty(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		responderJSON(http.StatusOK, `{"error": "Google Lens hasn't returned any results"}`))

	products, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestSearchCancelledContextStopsRetryWait(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{RetryDelay: time.Minute})
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		responderJSON(http.StatusInternalServerError, "boom"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.Search(ctx, testImageURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSearchInvalidImageURL(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, Config{})
	_, err := client.Search(context.Background(), "not a url")
	require.Error(t, err)
}

func TestSearchQueryParameters(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{Language: "en", Country: "us"})
	var gotQuery map[string][]string
	transport.RegisterResponder(http.MethodGet, "https://serpapi.test/search.json",
		func(req *http.Request) (*http.Response, error) {
			gotQuery = req.URL.Query()
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	_, err := client.Search(context.Background(), testImageURL)
	require.NoError(t, err)
	require.NotNil(t, gotQuery)
	assert.Equal(t, "google_lens", gotQuery["engine"][0])
	assert.Equal(t, testImageURL, gotQuery["url"][0])
	assert.Equal(t, "test-key", gotQuery["api_key"][0])
	assert.Equal(t, "en", gotQuery["hl"][0])
	assert.Equal(t, "us", gotQuery["gl"][0])
}
