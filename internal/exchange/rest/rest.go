// Package rest is the thin HTTP layer the adapters share. It owns the resty
// client, the per-venue rate limiter and the mapping from wire statuses onto
// the typed error taxonomy.
package rest

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"cryptobridge/internal/apierr"
)

const defaultTimeout = 10 * time.Second

// Client is a rate limited HTTP client bound to one venue base URL.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	baseURL string
}

// New builds a client for baseURL. rps/burst of zero disable throttling.
func New(baseURL string, timeout time.Duration, rps float64, burst int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "cryptobridge/1.0")

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		baseURL: baseURL,
	}
}

// URL renders the absolute URL for path and query, mainly for error context.
func (c *Client) URL(path, query string) string {
	if query == "" {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + query
}

// Call performs one HTTP request. The query string is appended verbatim so a
// pre-computed signature keeps its exact byte order. Non-2xx statuses come
// back as typed apierr errors together with the response body, which some
// venues need even on success to detect application level failures.
func (c *Client) Call(ctx context.Context, op, method, path, query string, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apierr.Request(op, c.URL(path, query), err)
	}

	url := path
	if query != "" {
		url = path + "?" + query
	}

	req := c.http.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	var resp *resty.Response
	var err error
	switch method {
	case "GET":
		resp, err = req.Get(url)
	case "POST":
		resp, err = req.Post(url)
	case "PUT":
		resp, err = req.Put(url)
	case "DELETE":
		resp, err = req.Delete(url)
	default:
		return nil, apierr.Request(op, c.URL(path, query), fmt.Errorf("unsupported method %s", method))
	}
	if err != nil {
		return nil, apierr.Request(op, c.URL(path, query), err)
	}

	if statusErr := apierr.FromStatus(resp.StatusCode(), op, c.URL(path, query)); statusErr != nil {
		return resp.Body(), statusErr
	}
	return resp.Body(), nil
}

// Get is shorthand for an unauthenticated GET request.
func (c *Client) Get(ctx context.Context, op, path, query string) ([]byte, error) {
	return c.Call(ctx, op, "GET", path, query, nil)
}
