package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultTTL is used when a response carries no usable Expires header.
// SWAPI data is static, so entries are kept for a day.
const DefaultTTL = 24 * time.Hour

// FromResponse converts an HTTP response to an Entry. The body is read and
// restored so the caller can still consume it.
func FromResponse(resp *http.Response, defaultTTL time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &Entry{
		Data:        body,
		ETag:        resp.Header.Get("ETag"),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		CachedAt:    time.Now(),
		Expires:     parseExpires(resp.Header, defaultTTL),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		entry.URL = resp.Request.URL.String()
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// parseExpires returns the Expires header time, or now + defaultTTL when the
// header is absent, unparseable or already in the past.
func parseExpires(headers http.Header, defaultTTL time.Duration) time.Time {
	fallback := time.Now().Add(defaultTTL)

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return fallback
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil || expires.Before(time.Now()) {
		return fallback
	}

	return expires
}

// ShouldRevalidate reports whether the entry carries a validator that can be
// sent as a conditional request header.
func ShouldRevalidate(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders adds If-None-Match (preferred) or If-Modified-Since
// to the request.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
}

// ToResponse rebuilds an HTTP response from a cached entry.
func ToResponse(entry *Entry, req *http.Request) *http.Response {
	header := make(http.Header)
	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}
	if entry.ETag != "" {
		header.Set("ETag", entry.ETag)
	}
	header.Set("X-Cache", "HIT")

	status := entry.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
		Request:       req,
	}
}
