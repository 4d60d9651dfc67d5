package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starscrape/starscrape/pkg/cache"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c := NewClient(cache.NewNull(), 0)
	c.SetBaseURL(serverURL)
	return c
}

func readmeResponse(content string) []byte {
	data, _ := json.Marshal(readmePayload{
		Content:  base64.StdEncoding.EncodeToString([]byte(content)),
		Encoding: "base64",
	})
	return data
}

func TestReadmeDecodesBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/foo/bar/readme", r.URL.Path)
		require.Contains(t, r.Header.Get("Accept"), "application/vnd.github+json")
		w.Write(readmeResponse("# Hello\n\nWorld — and some UTF-8: ünïcødé"))
	}))
	defer server.Close()

	r := testClient(t, server.URL).Readme(context.Background(), "foo/bar")
	assert.True(t, r.Fetched)
	assert.Equal(t, "# Hello\n\nWorld — and some UTF-8: ünïcødé", r.Content)
}

func TestReadmeNon200YieldsPlaceholder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	r := testClient(t, server.URL).Readme(context.Background(), "foo/bar")
	assert.False(t, r.Fetched)
	assert.Contains(t, r.Content, "404")
}

func TestReadmeTransportErrorYieldsPlaceholder(t *testing.T) {
	c := NewClient(cache.NewNull(), 0)
	c.SetBaseURL("http://127.0.0.1:1")

	r := c.Readme(context.Background(), "foo/bar")
	assert.False(t, r.Fetched)
	assert.Contains(t, r.Content, "error fetching README")
}

func TestReadmeUnknownEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(readmePayload{Content: "abc", Encoding: "rot13"})
	}))
	defer server.Close()

	r := testClient(t, server.URL).Readme(context.Background(), "foo/bar")
	assert.False(t, r.Fetched)
	assert.Contains(t, r.Content, "rot13")
}

func TestReadmeInvalidBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(readmePayload{Content: "!!! not base64 !!!", Encoding: "base64"})
	}))
	defer server.Close()

	r := testClient(t, server.URL).Readme(context.Background(), "foo/bar")
	assert.False(t, r.Fetched)
	assert.Contains(t, r.Content, "error decoding README content")
}

func TestReadmeLatin1Fallback(t *testing.T) {
	// 0xE9 is "é" in Latin-1 and invalid standalone UTF-8.
	raw := []byte{'c', 'a', 'f', 0xE9}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(readmePayload{
			Content:  base64.StdEncoding.EncodeToString(raw),
			Encoding: "base64",
		})
	}))
	defer server.Close()

	r := testClient(t, server.URL).Readme(context.Background(), "foo/bar")
	assert.True(t, r.Fetched)
	assert.Equal(t, "café", r.Content)
}

func TestReadmeStripsControlCharacters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(readmeResponse("a\x00b\x07c\nd\te"))
	}))
	defer server.Close()

	r := testClient(t, server.URL).Readme(context.Background(), "foo/bar")
	assert.True(t, r.Fetched)
	// NUL and BEL become spaces, newline and tab survive.
	assert.Equal(t, "a b c\nd\te", r.Content)
}

func TestReadmeTruncation(t *testing.T) {
	long := strings.Repeat("x", maxReadmeLen+500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(readmeResponse(long))
	}))
	defer server.Close()

	r := testClient(t, server.URL).Readme(context.Background(), "foo/bar")
	assert.True(t, r.Fetched)
	assert.True(t, strings.HasSuffix(r.Content, truncationMarker))
	assert.Len(t, r.Content, maxReadmeLen+len(truncationMarker))
}

func TestReadmeCachesSuccessOnly(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path == "/repos/foo/missing/readme" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(readmeResponse("cached content"))
	}))
	defer server.Close()

	fileCache, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	c := NewClient(fileCache, time.Hour)
	c.SetBaseURL(server.URL)
	ctx := context.Background()

	first := c.Readme(ctx, "foo/bar")
	second := c.Readme(ctx, "foo/bar")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, hits, "successful fetch should be served from cache")

	// Failures are never cached; each call hits the API again.
	c.Readme(ctx, "foo/missing")
	c.Readme(ctx, "foo/missing")
	assert.Equal(t, 3, hits)
}
