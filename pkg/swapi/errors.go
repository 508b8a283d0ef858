package swapi

import "fmt"

// MissingFieldError reports a linked object without the requested label.
type MissingFieldError struct {
	// Index is the position of the object in its collection.
	Index int
	Label string
	// URL is the object's own url field, when it has one.
	URL string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("linked object %d (%s) has no field %q", e.Index, e.URL, e.Label)
	}
	return fmt.Sprintf("linked object %d has no field %q", e.Index, e.Label)
}
