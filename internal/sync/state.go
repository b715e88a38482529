// Package sync runs the per-target synchronization loops: fetch changed
// records, transform them, bulk-upsert into the index, then — and only
// then — commit the watermark. Delivery is at-least-once; the idempotent
// upsert absorbs re-delivery after a crash before commit.
package sync

// State is the sync loop's position in its iteration cycle. Transitions
// are strictly sequential for one target; Committing is the only state
// that writes the checkpoint.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateLoading
	StateCommitting
	StateBackingOff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateLoading:
		return "loading"
	case StateCommitting:
		return "committing"
	case StateBackingOff:
		return "backing_off"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
