package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/cache"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := New(DefaultConfig(baseURL, "swapi-loader-test/1.0"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("https://swapi.dev/api", "TestApp/1.0.0"),
		},
		{
			name:        "empty base url",
			config:      Config{UserAgent: "TestApp/1.0.0"},
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "relative base url",
			config:      Config{BaseURL: "swapi.dev/api", UserAgent: "TestApp/1.0.0"},
			expectError: true,
			errorMsg:    `invalid base url "swapi.dev/api"`,
		},
		{
			name:        "empty user agent",
			config:      Config{BaseURL: "https://swapi.dev/api"},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client.GetCache() != nil {
				t.Error("Cache should be disabled without Redis")
			}
		})
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	client, err := New(Config{BaseURL: "https://swapi.dev/api", UserAgent: "TestApp/1.0.0"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
	}
	if client.config.CacheTTL != cache.DefaultTTL {
		t.Errorf("CacheTTL = %v, want %v", client.config.CacheTTL, cache.DefaultTTL)
	}
}

func TestResolveURL(t *testing.T) {
	client := newTestClient(t, "https://swapi.dev/api")

	tests := []struct {
		endpoint string
		want     string
	}{
		{"people/1/", "https://swapi.dev/api/people/1/"},
		{"/people/1/", "https://swapi.dev/api/people/1/"},
		{"people/?page=2", "https://swapi.dev/api/people/?page=2"},
		{"https://swapi.dev/api/films/1/", "https://swapi.dev/api/films/1/"},
		{"http://other.host/x/", "http://other.host/x/"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := client.ResolveURL(tt.endpoint)
			if err != nil {
				t.Fatalf("ResolveURL() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestGetJSON_Success(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		if r.URL.Path != "/api/people/1/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Luke Skywalker"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/api")

	body, err := client.GetJSON(context.Background(), "people/1/")
	if err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if string(body) != `{"name":"Luke Skywalker"}` {
		t.Errorf("body = %s", body)
	}
	if gotUA != "swapi-loader-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestGetJSON_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantClass ErrorClass
	}{
		{name: "unknown id", status: http.StatusNotFound, wantClass: ErrorClassClient},
		{name: "server error", status: http.StatusInternalServerError, wantClass: ErrorClassServer},
		{name: "bad gateway", status: http.StatusBadGateway, wantClass: ErrorClassServer},
		{name: "redirect not followed", status: http.StatusNotModified, wantClass: ErrorClassUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.status != http.StatusNotModified {
					w.Write([]byte(`{"detail":"Not found"}`))
				}
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			before := promtest.ToFloat64(swapiErrorsTotal.WithLabelValues(string(tt.wantClass)))

			_, err := client.GetJSON(context.Background(), "/api/people/99/")

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("Expected *FetchError, got %T: %v", err, err)
			}
			if fetchErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", fetchErr.StatusCode, tt.status)
			}
			if fetchErr.Class != tt.wantClass {
				t.Errorf("Class = %q, want %q", fetchErr.Class, tt.wantClass)
			}
			if fetchErr.URL != server.URL+"/api/people/99/" {
				t.Errorf("URL = %q", fetchErr.URL)
			}

			after := promtest.ToFloat64(swapiErrorsTotal.WithLabelValues(string(tt.wantClass)))
			if after-before != 1 {
				t.Errorf("swapi_errors_total{class=%q} delta = %v, want 1", tt.wantClass, after-before)
			}
		})
	}
}

func TestGetJSON_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.GetJSON(context.Background(), "/api/films/1/")

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected *ParseError, got %T: %v", err, err)
	}
	if parseErr.URL != server.URL+"/api/films/1/" {
		t.Errorf("URL = %q", parseErr.URL)
	}
}

func TestGetJSON_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := newTestClient(t, baseURL)

	_, err := client.GetJSON(context.Background(), "/api/people/1/")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %T: %v", err, err)
	}
	if fetchErr.Class != ErrorClassNetwork {
		t.Errorf("Class = %q, want %q", fetchErr.Class, ErrorClassNetwork)
	}
	if fetchErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", fetchErr.StatusCode)
	}
}

func TestGetJSON_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetJSON(ctx, "/api/people/1/")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestDo_CacheRevalidation(t *testing.T) {
	redisClient := setupTestRedis(t)

	var requests, conditional atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("If-None-Match") == `"film-1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"film-1"`)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"A New Hope"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL, "swapi-loader-test/1.0")
	cfg.Redis = redisClient
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		body, err := client.GetJSON(ctx, "/api/films/1/")
		if err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
		if string(body) != `{"title":"A New Hope"}` {
			t.Errorf("request %d body = %s", i+1, body)
		}
	}

	// Every call still reaches the server; the second one revalidates.
	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if got := conditional.Load(); got != 1 {
		t.Errorf("conditional requests = %d, want 1", got)
	}
}

func TestDo_NoCacheWithoutRedis(t *testing.T) {
	var conditional atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			conditional.Add(1)
		}
		w.Header().Set("ETag", `"x"`)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	for i := 0; i < 3; i++ {
		resp, err := client.Get(context.Background(), "/api/species/1/")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	if conditional.Load() != 0 {
		t.Error("Conditional headers sent without a cache")
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/films/3/", "/api/films/{id}/"},
		{"/api/people/12", "/api/people/{id}"},
		{"/api/people/", "/api/people/"},
		{"/api/starships/12/extra/", "/api/starships/{id}/extra/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := endpointLabel(tt.path); got != tt.want {
				t.Errorf("endpointLabel(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestClose(t *testing.T) {
	client := newTestClient(t, "https://swapi.dev/api")
	if err := client.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
