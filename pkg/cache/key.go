package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key written by the loader.
const KeyPrefix = "swapi"

// Key identifies a cached SWAPI response.
type Key struct {
	// Host is the API host (e.g., "swapi.dev").
	Host string

	// Path is the resource path (e.g., "/api/films/1/").
	Path string

	// Query holds the query parameters, if any.
	Query url.Values
}

// KeyFromURL builds the cache key of a request URL.
func KeyFromURL(u *url.URL) Key {
	return Key{
		Host:  strings.ToLower(u.Host),
		Path:  u.Path,
		Query: u.Query(),
	}
}

// String generates a deterministic key.
// Format: swapi:host/path:query1=val1:query2=val2
//
// Example:
//
//	swapi:swapi.dev/api/films/1
func (k Key) String() string {
	parts := []string{KeyPrefix}

	resource := strings.Trim(k.Host+"/"+strings.Trim(k.Path, "/"), "/")
	if resource != "" {
		parts = append(parts, resource)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, name+"="+k.Query.Get(name))
		}
	}

	return strings.Join(parts, ":")
}
