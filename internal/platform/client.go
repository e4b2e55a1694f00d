package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// APIClient is the shared HTTP client for platform read/write calls.
// It applies a global rate limit across adapters, classifies response
// statuses into the error taxonomy, and strips query strings (where API
// keys travel) from error messages.
type APIClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAPIClient builds a client with the given per-call timeout and
// requests-per-second budget. A non-positive rate disables limiting.
func NewAPIClient(timeout time.Duration, ratePerSecond float64) *APIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &APIClient{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *APIClient) GetJSON(ctx context.Context, rawURL string, out any) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, out)
}

// PostJSON performs a POST request with a JSON body and decodes the response into out.
// A nil out discards the response body.
func (c *APIClient) PostJSON(ctx context.Context, rawURL string, body any, out any) error {
	return c.do(ctx, http.MethodPost, rawURL, body, out)
}

func (c *APIClient) do(ctx context.Context, method, rawURL string, body, out any) error {
	endpoint := redactURL(rawURL)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return WrapError(ErrTransient, err, "rate limit wait for %s", endpoint)
		}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return WrapError(ErrValidation, err, "encode request for %s", endpoint)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return WrapError(ErrValidation, err, "build request for %s", endpoint)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WrapError(ErrTransient, err, "call %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return NewError(ClassifyStatus(resp.StatusCode), "%s returned %d: %s", endpoint, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return WrapError(ErrPlatform, err, "decode response from %s", endpoint)
	}
	return nil
}

// redactURL drops query parameters and user info so credentials never
// end up in error messages or SyncResult summaries.
func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "platform endpoint"
	}
	parsed.RawQuery = ""
	parsed.User = nil
	return parsed.String()
}
