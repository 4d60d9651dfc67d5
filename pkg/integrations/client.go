// Package integrations provides the shared HTTP plumbing for read-only
// platform API clients.
//
// Unlike the cookie-scoped web session used for scraping, clients built on
// this package talk to public JSON APIs with plain header-based requests.
// Requests are strictly sequential; there is no retry layer, and failures
// are reported to the caller as-is.
package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/starscrape/starscrape/pkg/errors"
)

// Client provides shared HTTP functionality for API clients.
// Default headers are applied to every request made through it.
type Client struct {
	http    *http.Client
	headers map[string]string
}

// NewClient creates a Client with the given default headers.
// Pass nil if no default headers are needed.
func NewClient(headers map[string]string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		headers: headers,
	}
}

// Do performs a GET request and returns the response status and body.
// An error is returned only for request construction or transport failures;
// non-2xx statuses are reported through the status return value so callers
// can implement their own degradation policy.
func (c *Client) Do(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, errors.Wrap(errors.ErrCodeInternal, err, "create request for %s", url)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(errors.ErrCodeNetwork, err, "read response from %s", url)
	}
	return resp.StatusCode, body, nil
}

// GetJSON performs a GET request and JSON-decodes a 200 response into v.
// Any other status is an error.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	status, body, err := c.Do(ctx, url)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errors.New(errors.ErrCodeNetwork, "unexpected status %d from %s", status, url)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
