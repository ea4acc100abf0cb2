package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIError represents an error response from the provider API.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // from the Retry-After header, 0 if absent
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// apiErrorBody covers both error shapes CoinGecko emits: keyed plans get
// {"status":{"error_code","error_message"}}, the public tier a flat
// {"error":"..."}.
type apiErrorBody struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Error string `json:"error"`
}

// errorMessage pulls the provider's message out of an error body, falling
// back to the status text when the body is not one of the known shapes.
func errorMessage(statusCode int, body []byte) string {
	var eb apiErrorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Status.ErrorMessage != "" {
			return eb.Status.ErrorMessage
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	return http.StatusText(statusCode)
}

// parseRetryAfter reads a whole-seconds Retry-After value. CoinGecko does
// not use the HTTP-date form.
func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// doRequest performs an HTTP request with the given method and path.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set(c.keyHeader(), c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request, retrying retryable failures with jittered
// exponential backoff. A Retry-After from the provider overrides the backoff.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	backoff := c.retryBackoff

	var lastErr error
	for attempt := 0; ; attempt++ {
		body, err := c.doRequest(ctx, method, path, query)
		if err == nil {
			return body, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		// Jitter: backoff * (0.5 to 1.5)
		wait := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
		if apiErr.RetryAfter > 0 {
			wait = apiErr.RetryAfter
		}
		c.logger.Debug("retrying request",
			"attempt", attempt+1,
			"status", apiErr.StatusCode,
			"wait", wait,
			"path", path,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		backoff *= 2
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request with retries.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
