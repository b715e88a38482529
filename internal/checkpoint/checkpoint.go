// Package checkpoint persists per-target synchronization progress. Each
// target owns exactly one checkpoint record; the record is written only
// after a batch has been durably indexed and is never rewound except by an
// explicit operator reset.
package checkpoint

import (
	"errors"

	"github.com/kilupskalvis/wvsync/internal/models"
)

// ErrCorrupt is returned when a checkpoint record cannot be decoded.
// Callers must treat this as fatal at startup: guessing a watermark would
// either silently reprocess everything or silently skip unprocessed data.
var ErrCorrupt = errors.New("checkpoint record is corrupt")

// ErrSchemaMismatch is returned when a checkpoint was written by a binary
// with a different index schema version. Requires an operator reset.
var ErrSchemaMismatch = errors.New("checkpoint schema version mismatch")

// Store is the durable checkpoint record per sync target.
type Store interface {
	// Load returns the checkpoint for target. A target that has never
	// committed gets a fresh checkpoint with the beginning-of-time
	// watermark sentinel.
	Load(target string) (*models.Checkpoint, error)

	// Commit durably records the checkpoint for target. Watermarks must be
	// monotonically non-decreasing; a regression is rejected.
	Commit(target string, cp *models.Checkpoint) error

	// Reset deletes the checkpoint for target, forcing a full resync on the
	// next run. It is not an error if no checkpoint exists.
	Reset(target string) error

	// List returns all stored checkpoints keyed by target name.
	List() (map[string]*models.Checkpoint, error)

	Close() error
}
