// Package provider implements the reverse image search gateway. It submits
// a publicly reachable image URL to the search provider, normalizes the two
// result channels into a uniform product schema, and deduplicates near
// identical entries.
package provider

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/snappedai/snapsearch/internal/errors"
	"github.com/snappedai/snapsearch/internal/httpclient"
	"github.com/snappedai/snapsearch/internal/observability"
)

// maxAttempts bounds the retry loop for a single search.
const maxAttempts = 3

// Config holds the provider gateway settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Engine        string
	Language      string
	Country       string
	MaxResults    int
	StoreRawData  bool
	Timeout       time.Duration
	RetryDelay    time.Duration
	RateLimitWait time.Duration
}

// Client performs reverse image searches against the provider.
type Client struct {
	cfg     Config
	http    *httpclient.Client
	metrics *observability.Metrics
}

// Searcher is the interface consumed by callers of the gateway, satisfied
// by both Client and the caching wrapper.
type Searcher interface {
	Search(ctx context.Context, imageURL string) ([]Product, error)
}

// NewClient creates a provider client. The metrics parameter may be nil.
func NewClient(cfg Config, hc *httpclient.Client, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://serpapi.com"
	}
	if cfg.Engine == "" {
		cfg.Engine = "google_lens"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 30
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RateLimitWait <= 0 {
		cfg.RateLimitWait = 2 * time.Second
	}
	return &Client{cfg: cfg, http: hc, metrics: metrics}
}

// Search submits the image URL to the provider and returns the normalized,
// deduplicated product list. A missing API key and persistent rate limiting
// both yield an empty result rather than an error; transport failures and
// server errors are retried with backoff before failing hard.
func (c *Client) Search(ctx context.Context, imageURL string) ([]Product, error) {
	if c.cfg.APIKey == "" {
		logger.Warn("search skipped, no API key configured")
		c.countRequest("skipped")
		return []Product{}, nil
	}

	reqURL, err := c.buildURL(imageURL)
	if err != nil {
		return nil, errors.New(err).
			Component("provider").
			Category(errors.CategoryValidation).
			Context("image_url", imageURL).
			Build()
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ProviderDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, status, header, err := c.doRequest(ctx, reqURL)
		switch {
		case err != nil:
			lastErr = err
		case status == http.StatusTooManyRequests:
			if attempt == maxAttempts {
				logger.Warn("rate limit persisted, returning empty result",
					"attempts", attempt)
				c.countRequest("rate_limited")
				return []Product{}, nil
			}
			wait := c.retryAfter(header)
			logger.Info("rate limited, waiting before retry",
				"attempt", attempt, "wait", wait)
			c.countRetry()
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		case status >= 400 && status < 500:
			logger.Warn("provider rejected request, returning empty result",
				"status", status)
			c.countRequest("client_error")
			return []Product{}, nil
		case status >= 500:
			lastErr = errors.Newf("provider returned status %d", status).
				Component("provider").
				Category(errors.CategoryProvider).
				Context("status", status).
				Build()
		default:
			products, perr := c.processResponse(body)
			if perr != nil {
				c.countRequest("parse_error")
				return nil, perr
			}
			c.countRequest("success")
			return products, nil
		}

		if attempt == maxAttempts {
			break
		}
		wait := backoff(c.cfg.RetryDelay, attempt)
		logger.Warn("search attempt failed, retrying",
			"attempt", attempt, "wait", wait, "error", lastErr)
		c.countRetry()
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}

	c.countRequest("error")
	return nil, errors.New(fmt.Errorf("search failed after %d attempts: %w", maxAttempts, lastErr)).
		Component("provider").
		Category(errors.CategoryNetwork).
		Context("image_url", imageURL).
		Build()
}

func (c *Client) buildURL(imageURL string) (string, error) {
	if _, err := url.ParseRequestURI(imageURL); err != nil {
		return "", fmt.Errorf("invalid image URL: %w", err)
	}
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid provider base URL: %w", err)
	}
	base = base.JoinPath("search.json")
	q := url.Values{}
	q.Set("engine", c.cfg.Engine)
	q.Set("url", imageURL)
	q.Set("api_key", c.cfg.APIKey)
	if c.cfg.Language != "" {
		q.Set("hl", c.cfg.Language)
	}
	if c.cfg.Country != "" {
		q.Set("gl", c.cfg.Country)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// doRequest performs a single provider round trip, returning the body,
// HTTP status, and response headers. Transport errors are returned as-is so
// the caller can retry.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, int, http.Header, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, nil, err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, 0, nil, err
	}
	return body, resp.StatusCode, resp.Header, nil
}

// retryAfter returns the wait before retrying a rate limited request,
// honoring a numeric Retry-After header when the provider sets one.
func (c *Client) retryAfter(header http.Header) time.Duration {
	if header != nil {
		if v := header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return c.cfg.RateLimitWait
}

// processResponse parses the payload, maps both sub-channels, deduplicates,
// drops products with no price, and caps the result count.
func (c *Client) processResponse(body []byte) ([]Product, error) {
	resp, err := parseResponse(body)
	if err != nil {
		return nil, errors.New(err).
			Component("provider").
			Category(errors.CategoryProvider).
			Build()
	}
	if resp.Error != "" {
		logger.Warn("provider reported error", "error", resp.Error)
		return []Product{}, nil
	}

	products := make([]Product, 0, len(resp.VisualMatches)+len(resp.ShoppingResults))
	for i := range resp.VisualMatches {
		products = append(products, productFromVisualMatch(&resp.VisualMatches[i], c.cfg.StoreRawData))
	}
	for i := range resp.ShoppingResults {
		products = append(products, productFromShoppingResult(&resp.ShoppingResults[i], c.cfg.StoreRawData))
	}

	products = Deduplicate(products)

	priced := products[:0]
	for i := range products {
		if products[i].Price != "" {
			priced = append(priced, products[i])
		}
	}
	products = priced

	if len(products) > c.cfg.MaxResults {
		products = products[:c.cfg.MaxResults]
	}

	logger.Debug("search processed",
		"visual_matches", len(resp.VisualMatches),
		"shopping_results", len(resp.ShoppingResults),
		"returned", len(products))
	return products, nil
}

func (c *Client) countRequest(outcome string) {
	if c.metrics != nil {
		c.metrics.ProviderRequests.WithLabelValues(outcome).Inc()
	}
}

func (c *Client) countRetry() {
	if c.metrics != nil {
		c.metrics.ProviderRetries.Inc()
	}
}

// backoff returns the exponential delay for the given attempt with up to
// 25% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
