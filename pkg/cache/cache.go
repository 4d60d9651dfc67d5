// Package cache provides response caching for starscrape.
//
// Scraped README payloads are cached between runs so repeated exports do not
// re-hit the public GitHub API. Two backends are provided: a file-based cache
// for single-machine CLI usage (the default, stored under the XDG cache
// directory) and a Redis-backed cache for users running repeated exports
// from several machines against a shared instance. A null backend disables
// caching entirely (--no-cache).
package cache

import (
	"context"
	"time"
)

// Cache is the interface implemented by all cache backends.
// Values are opaque byte slices; callers handle serialization.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given time-to-live.
	// A TTL of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Null is a no-op cache that never stores anything.
// Used when caching is disabled and in tests.
type Null struct{}

// NewNull creates a cache that always misses.
func NewNull() Cache { return Null{} }

// Get always reports a miss.
func (Null) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

// Set discards the value.
func (Null) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error { return nil }

// Delete does nothing.
func (Null) Delete(ctx context.Context, key string) error { return nil }

// Close does nothing.
func (Null) Close() error { return nil }

var _ Cache = Null{}
