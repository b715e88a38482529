package models

import "time"

// Checkpoint is the durable progress record for one sync target. It is
// owned exclusively by that target's sync loop and written only after a
// batch has been confirmed indexed.
type Checkpoint struct {
	Watermark     Watermark `json:"watermark"`
	LastSuccess   time.Time `json:"last_success_time"`
	SchemaVersion int       `json:"schema_version"`
}
