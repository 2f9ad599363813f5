package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"audit-automate/internal/types"
)

// HTTPClient provides HTTP functionality with rate limiting and retries
type HTTPClient struct {
	client  *http.Client
	config  *types.Config
	logger  types.Logger
	limiter *time.Ticker
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config *types.Config, logger types.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: config.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPClient{
		client:  client,
		config:  config,
		logger:  logger,
		limiter: time.NewTicker(config.RequestDelay),
	}
}

// PostJSON marshals payload, POSTs it and decodes the JSON reply into out.
// Transport errors, 429 and 5xx replies are retried; other 4xx replies are not.
func (h *HTTPClient) PostJSON(ctx context.Context, url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := h.do(ctx, http.MethodPost, url, body, map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (h *HTTPClient) do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		// Wait for rate limiter
		select {
		case <-h.limiter.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", h.config.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		h.logger.Debugf("Making %s request to %s (attempt %d/%d)", method, url, attempt+1, h.config.MaxRetries+1)

		respBody, status, err := h.roundTrip(req)
		if err != nil {
			lastErr = err
			h.logger.Warnf("Request failed (attempt %d): %v", attempt+1, err)
			continue
		}

		if status != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", status)
			h.logger.Warnf("Unexpected status code %d (attempt %d)", status, attempt+1)
			// Client errors will not change on retry
			if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				break
			}
			continue
		}

		h.logger.Debugf("Successfully retrieved %d bytes from %s", len(respBody), url)
		return respBody, nil
	}

	return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
}

func (h *HTTPClient) roundTrip(req *http.Request) ([]byte, int, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Close cleans up resources
func (h *HTTPClient) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}
