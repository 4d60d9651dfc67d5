// Package github provides access to GitHub's public read API.
//
// The client is intentionally tiny: the scraper consumes only the README
// endpoint, and it does so under an always-succeeds contract. Every call
// returns a Readme value — either the decoded document text or a
// descriptive placeholder — so that export never aborts because one
// repository's README could not be fetched.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/starscrape/starscrape/pkg/cache"
	"github.com/starscrape/starscrape/pkg/integrations"
)

const (
	defaultBaseURL = "https://api.github.com"

	// maxReadmeLen caps README text at roughly 100KB.
	maxReadmeLen = 100000

	truncationMarker = "... [content truncated]"
)

// Readme is the two-variant result of a README fetch: the document text
// when Fetched is true, a human-readable placeholder otherwise.
type Readme struct {
	Content string `json:"content"`
	Fetched bool   `json:"fetched"`
}

// Client fetches repository READMEs from the public read API.
// Successful fetches are cached so repeated exports do not re-hit the API.
type Client struct {
	*integrations.Client
	baseURL string
	cache   cache.Cache
	ttl     time.Duration
}

// NewClient creates a README client backed by the given cache.
// Pass cache.NewNull() to disable caching.
func NewClient(c cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(map[string]string{"Accept": "application/vnd.github+json"}),
		baseURL: defaultBaseURL,
		cache:   c,
		ttl:     ttl,
	}
}

// SetBaseURL overrides the API host, used by tests.
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

// Readme fetches the README for "owner/name". It never fails: any network,
// status, decoding or encoding problem degrades to a placeholder string
// describing what went wrong. Only successful fetches are cached.
func (c *Client) Readme(ctx context.Context, fullName string) Readme {
	key := "readme:" + fullName

	if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
		var r Readme
		if json.Unmarshal(data, &r) == nil {
			return r
		}
	}

	r := c.fetchReadme(ctx, fullName)
	if r.Fetched {
		if data, err := json.Marshal(r); err == nil {
			_ = c.cache.Set(ctx, key, data, c.ttl)
		}
	}
	return r
}

// readmePayload is the wire shape of the README endpoint response.
type readmePayload struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (c *Client) fetchReadme(ctx context.Context, fullName string) Readme {
	url := fmt.Sprintf("%s/repos/%s/readme", c.baseURL, fullName)

	status, body, err := c.Do(ctx, url)
	if err != nil {
		return Readme{Content: fmt.Sprintf("error fetching README: %v", err)}
	}
	if status != http.StatusOK {
		return Readme{Content: fmt.Sprintf("README fetch failed (%d): %s", status, strings.TrimSpace(string(body)))}
	}

	var payload readmePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Readme{Content: fmt.Sprintf("error decoding README response: %v", err)}
	}
	if payload.Encoding != "base64" {
		return Readme{Content: fmt.Sprintf("unknown README encoding: %s", payload.Encoding)}
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return Readme{Content: fmt.Sprintf("error decoding README content: %v", err)}
	}

	return Readme{Content: sanitize(decodeText(raw)), Fetched: true}
}

// decodeText interprets raw bytes as UTF-8, falling back to Latin-1 when the
// payload is not valid UTF-8. Latin-1 maps every byte to the code point of
// the same value, so the fallback cannot fail.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// sanitize replaces control characters (anything neither printable nor
// whitespace) with spaces and truncates overly long documents, appending a
// marker when content was cut.
func sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	count := 0
	for _, r := range text {
		if count == maxReadmeLen {
			return b.String() + truncationMarker
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
		count++
	}
	return b.String()
}
