// Package models defines the core data structures used throughout wvsync:
// watermarks, checkpoints, source records, and index documents.
package models

import (
	"fmt"
	"time"
)

// Watermark marks how far synchronization has progressed for one target.
// It is a composite cursor over (updated_at, id) so that rows sharing a
// change timestamp still have a total order. The zero value is the
// "beginning of time" sentinel used on first run.
type Watermark struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
}

// IsZero reports whether w is the beginning-of-time sentinel.
func (w Watermark) IsZero() bool {
	return w.UpdatedAt.IsZero() && w.ID == ""
}

// Before reports whether w orders strictly before other.
func (w Watermark) Before(other Watermark) bool {
	if w.UpdatedAt.Before(other.UpdatedAt) {
		return true
	}
	if w.UpdatedAt.Equal(other.UpdatedAt) {
		return w.ID < other.ID
	}
	return false
}

// String renders the watermark for logs and status output.
func (w Watermark) String() string {
	if w.IsZero() {
		return "(start)"
	}
	return fmt.Sprintf("%s/%s", w.UpdatedAt.UTC().Format(time.RFC3339Nano), w.ID)
}
