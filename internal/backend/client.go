// Package backend is the storefront's client for the external REST API that
// owns products, orders and reviews.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fjod/food-storefront/internal/domain"
	"github.com/fjod/food-storefront/pkg/logger"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound    = errors.New("backend: not found")
	ErrUnavailable = errors.New("backend: unavailable")
)

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: unexpected status %d: %s", e.Code, e.Body)
}

const maxErrorBody = 512

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	sfg     singleflight.Group // coalesces identical GETs
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBreakerSettings replaces the default circuit breaker configuration.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker[[]byte](st)
	}
}

// DefaultBreakerSettings opens after 5 consecutive failures and probes again after 30s.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isSuccessful,
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](DefaultBreakerSettings()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// isSuccessful keeps client errors (4xx) from tripping the breaker.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code < http.StatusInternalServerError
	}
	return errors.Is(err, context.Canceled)
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getJSON(ctx, &products, "products"); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	var p domain.Product
	if err := c.getJSON(ctx, &p, "products", string(id)); err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (c *Client) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getJSON(ctx, &products, "products", "category", category); err != nil {
		return nil, fmt.Errorf("list category %s: %w", category, err)
	}
	return products, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	if err := c.getJSON(ctx, &o, "orders", id); err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (c *Client) ListReviews(ctx context.Context, productID domain.ProductID) ([]domain.Review, error) {
	var reviews []domain.Review
	if err := c.getJSON(ctx, &reviews, "reviews", "product", string(productID)); err != nil {
		return nil, fmt.Errorf("list reviews %s: %w", productID, err)
	}
	return reviews, nil
}

func (c *Client) CreateReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	body, err := json.Marshal(review)
	if err != nil {
		return domain.Review{}, fmt.Errorf("marshal review: %w", err)
	}

	endpoint, err := c.endpoint("reviews")
	if err != nil {
		return domain.Review{}, err
	}
	raw, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}

	var created domain.Review
	if err := json.Unmarshal(raw, &created); err != nil {
		return domain.Review{}, fmt.Errorf("unmarshal review: %w", err)
	}
	return created, nil
}

func (c *Client) DeleteReview(ctx context.Context, id string) error {
	endpoint, err := c.endpoint("reviews", id)
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodDelete, endpoint, nil); err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}
	return nil
}

// endpoint joins path segments onto the base URL, escaping each one.
// Empty and dot segments are rejected since JoinPath would resolve them.
func (c *Client) endpoint(path ...string) (string, error) {
	escaped := make([]string, len(path))
	for i, p := range path {
		if p == "" || p == "." || p == ".." {
			return "", fmt.Errorf("%w: invalid path segment %q", ErrNotFound, p)
		}
		escaped[i] = url.PathEscape(p)
	}
	endpoint, err := url.JoinPath(c.baseURL, escaped...)
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}
	return endpoint, nil
}

func (c *Client) getJSON(ctx context.Context, out any, path ...string) error {
	endpoint, err := c.endpoint(path...)
	if err != nil {
		return err
	}

	// the shared call must outlive any single caller; the client timeout bounds it
	ch := c.sfg.DoChan(endpoint, func() (interface{}, error) {
		return c.do(context.WithoutCancel(ctx), http.MethodGet, endpoint, nil)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	if res.Shared {
		logger.FromContext(ctx).Debug().Str("url", endpoint).Msg("backend response shared")
	}

	if err := json.Unmarshal(res.Val.([]byte), out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, endpoint, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return raw, err
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
