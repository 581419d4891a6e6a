package info

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ClientConfig configures an HTTP reference-data client.
type ClientConfig struct {
	// BaseURL is the service root, e.g. http://info-service:8080.
	BaseURL string

	// Username and Password enable HTTP basic auth when Username is set.
	Username string
	Password string

	// Timeout bounds each request attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries for network errors and 5xx responses.
	// Default: 2
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled on each retry.
	// Default: 200 milliseconds
	RetryBackoff time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
}

// httpClient performs authenticated JSON GETs with retry on transient errors.
type httpClient struct {
	service string
	config  ClientConfig
	client  *http.Client
	logger  *slog.Logger
}

func newHTTPClient(service string, config ClientConfig) *httpClient {
	config.applyDefaults()
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &httpClient{
		service: service,
		config:  config,
		client: &http.Client{
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return service + " " + r.Method + " " + r.URL.Path
				})),
			Timeout: config.Timeout,
		},
		logger: slog.Default().With("component", service+".client"),
	}
}

// getJSON fetches path and decodes the JSON body into out.
func (c *httpClient) getJSON(ctx context.Context, path string, out interface{}) error {
	body, status, err := c.get(ctx, path)
	if err != nil {
		return NewDirectoryError(c.service, path, status, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return NewDirectoryError(c.service, path, status, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (c *httpClient) get(ctx context.Context, path string) ([]byte, int, error) {
	url := c.config.BaseURL + path
	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.config.RetryBackoff
			c.logger.Debug("retrying request",
				"path", path,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.config.Username != "" {
			req.SetBasicAuth(c.config.Username, c.config.Password)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			lastErr = err
			c.logger.Warn("request failed, will retry", "path", path, "attempt", attempt+1, "error", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		lastStatus = resp.StatusCode

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", readErr)
			}
			return body, resp.StatusCode, nil
		}

		lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
		if resp.StatusCode < 500 {
			// Client errors are not transient.
			return nil, resp.StatusCode, lastErr
		}

		c.logger.Warn("request returned error status, will retry",
			"path", path,
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	return nil, lastStatus, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
