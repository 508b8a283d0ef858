package batch

import "fmt"

// ResolutionError reports the people record that failed the batch.
type ResolutionError struct {
	ID  int
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("batch failed at person %d: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
