package index

import (
	"fmt"
	"strings"
)

// UnavailableError wraps request-level failures against the index.
// It is transient: the sync loop retries with backoff.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("index unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Transient marks this error as retryable.
func (e *UnavailableError) Transient() bool { return true }

// DocumentFailure is one document the index rejected within a batch.
type DocumentFailure struct {
	DocID   string
	Message string
}

// RejectedError reports documents the index rejected (mapping/schema
// conflicts). It is structural: retrying without a data or schema change
// will not succeed, so the sync loop escalates after bounded attempts and
// withholds the watermark.
type RejectedError struct {
	Failures []DocumentFailure
}

func (e *RejectedError) Error() string {
	if len(e.Failures) == 0 {
		return "index rejected batch"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.DocID, f.Message))
	}
	return fmt.Sprintf("index rejected %d document(s): %s", len(e.Failures), strings.Join(parts, "; "))
}
