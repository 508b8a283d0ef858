package store

import "fmt"

// PersistenceError reports a failed database operation. Op names the
// step, e.g. "connect", "schema", "insert" or "commit".
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
