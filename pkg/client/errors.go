package client

import (
	"fmt"
)

// FetchError reports a failed GET: a transport failure or a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int // 0 for transport failures
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s: %s error: %v", e.URL, e.Class, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s error (status %d): %v", e.URL, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s error (status %d)", e.URL, e.Class, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that is not valid JSON.
type ParseError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}
