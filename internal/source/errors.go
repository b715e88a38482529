package source

import "fmt"

// UnavailableError wraps connection and query failures against the source.
// It is transient: the sync loop retries with backoff and never abandons
// the target.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Transient marks this error as retryable.
func (e *UnavailableError) Transient() bool { return true }

func unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}
