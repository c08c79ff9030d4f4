package logreplay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnexpectedStatus is returned for responses the tool does not know how to handle.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Results of posting one line.
const (
	resultAccepted = "accepted"
	resultIgnored  = "ignored"
	resultFailed   = "failed"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	token   string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   token,
	}
}

// get performs an authenticated GET request.
func (c *HTTPClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

// post performs a POST request with JSON body.
func (c *HTTPClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// postMessage submits one message, retrying with backoff while the service applies
// backpressure. It returns the result and how many retries were needed.
func (c *HTTPClient) postMessage(ctx context.Context, msg Message) (string, int, error) {
	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		resp, err := c.post(ctx, "/messages", msg)
		if err != nil {
			return resultFailed, attempt, err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusAccepted:
			return resultAccepted, attempt, nil
		case http.StatusOK:
			return resultIgnored, attempt, nil
		case http.StatusTooManyRequests:
			if attempt >= maxRetries {
				return resultFailed, attempt, fmt.Errorf("%w: still throttled after %d retries", ErrUnexpectedStatus, attempt)
			}
			select {
			case <-ctx.Done():
				return resultFailed, attempt, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		default:
			return resultFailed, attempt, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
	}
}

// fetchReport returns the plain-text bonus report.
func (c *HTTPClient) fetchReport(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, "/commands/report?format=text")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLineBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read report: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(body))
	}
	return string(body), nil
}
