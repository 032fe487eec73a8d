package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/vfdiscovery/pkg/buildinfo"
	"github.com/matzehuels/vfdiscovery/pkg/httputil"
	"github.com/matzehuels/vfdiscovery/pkg/observability"
)

// Client provides shared HTTP functionality for the upstream clients.
// It handles retry logic, common request headers, and HTTP hooks.
type Client struct {
	http    *http.Client
	headers map[string]string
	hooks   observability.HTTPHooks
	retry   httputil.Policy
}

// NewClient creates a Client with the given default headers.
// Headers are applied to all requests made through this client.
// Pass nil for headers or hooks if none are needed.
func NewClient(headers map[string]string, hooks observability.HTTPHooks) *Client {
	if hooks == nil {
		hooks = observability.NoopHTTPHooks{}
	}
	return &Client{
		http:    NewHTTPClient(),
		headers: headers,
		hooks:   hooks,
		retry:   httputil.DefaultPolicy(),
	}
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// Transient failures (network errors, 5xx) are retried with backoff.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	data, err := c.fetch(ctx, url, headers)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// GetBytes performs an HTTP GET request and returns the raw response body.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, url, nil)
}

func (c *Client) fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var data []byte
	err := httputil.Retry(ctx, c.retry, func() error {
		body, err := c.doRequest(ctx, url, headers)
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(body)
		if err != nil {
			return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
		}
		return nil
	})
	return data, err
}

func (c *Client) doRequest(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	c.hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.hooks.OnError(ctx, req.Method, host, path, err)
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	c.hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(url, resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(url string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code >= 500:
		return &httputil.RetryableError{Err: &StatusError{URL: url, Code: code}}
	default:
		return &StatusError{URL: url, Code: code}
	}
}
