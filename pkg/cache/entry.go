// Package cache stores SWAPI responses in Redis so repeated runs can
// revalidate them with conditional requests instead of downloading again.
package cache

import (
	"time"
)

// Entry represents a cached SWAPI response.
type Entry struct {
	// URL is the absolute URL the response was fetched from
	URL string `json:"url"`

	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// Expires is when the entry is evicted from Redis
	Expires time.Time `json:"expires"`

	// LastModified for conditional requests (If-Modified-Since)
	LastModified time.Time `json:"last_modified"`

	// StatusCode of the cached response
	StatusCode int `json:"status_code"`

	// ContentType of the cached response
	ContentType string `json:"content_type"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
