package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"funding-quotes/pkg/metrics"
)

const (
	defaultTimeout           = 15 * time.Second
	defaultRequestsPerSecond = 10
	defaultMaxRetries        = 2
	defaultRetryBackoff      = 250 * time.Millisecond
)

// Options configures one of the HTTP API clients
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	// MaxRetries bounds retries of 5xx and transport failures
	MaxRetries   int
	RetryBackoff time.Duration
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API returned status code %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from one of the APIs
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// httpClient is the shared transport of the JSON API clients: rate limited,
// behind a circuit breaker, retrying 5xx with backoff
type httpClient struct {
	name           string
	opts           Options
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	logger         *zap.Logger
}

func newHTTPClient(name string, opts Options, logger *zap.Logger) *httpClient {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named(name)

	cbSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// Client errors and cancellations say nothing about the API's health
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode < 500
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Info("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &httpClient{
		name:           name,
		opts:           opts,
		httpClient:     &http.Client{Timeout: opts.Timeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		rateLimiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:         logger,
	}
}

// getJSON issues a GET and decodes the response into out
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// postJSON issues a POST with a JSON body and decodes the response into out
func (c *httpClient) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := c.do(ctx, http.MethodPost, path, nil, in)
	if err != nil {
		return err
	}
	return decode(body, out)
}

func decode(body []byte, out interface{}) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// do returns the raw body of a 2xx response
func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, in interface{}) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doWithRetry(ctx, method, path, query, in)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *httpClient) doWithRetry(ctx context.Context, method, path string, query url.Values, in interface{}) ([]byte, error) {
	fullURL := c.opts.BaseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.opts.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.opts.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.APIRequests.WithLabelValues(c.name, "transport").Inc()
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		metrics.APIRequests.WithLabelValues(c.name, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()
		if err != nil {
			lastErr = fmt.Errorf("failed to read body: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = parseAPIError(resp.StatusCode, body)
			c.logger.Debug("retrying after server error",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt))
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, parseAPIError(resp.StatusCode, body)
		}
		return body, nil
	}
	return nil, lastErr
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal(body, apiErr) != nil || (apiErr.Message == "" && apiErr.Code == "") {
		apiErr.Message = string(bytes.TrimSpace(body))
	}
	return apiErr
}
