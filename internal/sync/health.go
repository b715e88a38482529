package sync

import (
	"sync"
	"time"
)

// TargetStatus is the externally visible condition of one sync target.
type TargetStatus struct {
	State               string    `json:"state"`
	Watermark           string    `json:"watermark"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Blocked             bool      `json:"blocked"`
}

// Tracker aggregates per-target health for the readiness endpoint and the
// status command. Transient failures stay invisible to readiness until they
// persist past the failure threshold; a blocked target degrades readiness
// immediately.
type Tracker struct {
	mu               sync.RWMutex
	targets          map[string]*TargetStatus
	failureThreshold int
}

// NewTracker creates a Tracker. failureThreshold is how many consecutive
// failed iterations a target may accumulate before readiness degrades.
func NewTracker(failureThreshold int) *Tracker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	return &Tracker{
		targets:          make(map[string]*TargetStatus),
		failureThreshold: failureThreshold,
	}
}

func (t *Tracker) status(target string) *TargetStatus {
	st, ok := t.targets[target]
	if !ok {
		st = &TargetStatus{State: StateIdle.String()}
		t.targets[target] = st
	}
	return st
}

// SetState records a state transition.
func (t *Tracker) SetState(target string, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status(target).State = s.String()
}

// MarkSuccess records a committed batch (or a clean empty iteration).
func (t *Tracker) MarkSuccess(target, watermark string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.status(target)
	st.Watermark = watermark
	st.LastSuccess = time.Now().UTC()
	st.LastError = ""
	st.ConsecutiveFailures = 0
	st.Blocked = false
}

// MarkFailure records a failed iteration.
func (t *Tracker) MarkFailure(target string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.status(target)
	st.LastError = err.Error()
	st.ConsecutiveFailures++
}

// MarkBlocked records that a target is stuck on a structurally rejected
// batch and needs operator attention.
func (t *Tracker) MarkBlocked(target string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.status(target)
	st.LastError = err.Error()
	st.Blocked = true
}

// Ready reports overall readiness: no target blocked and no target failing
// past the threshold.
func (t *Tracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, st := range t.targets {
		if st.Blocked || st.ConsecutiveFailures >= t.failureThreshold {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of all target statuses.
func (t *Tracker) Snapshot() map[string]TargetStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]TargetStatus, len(t.targets))
	for name, st := range t.targets {
		out[name] = *st
	}
	return out
}
