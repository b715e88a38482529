package sync

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponential delays with a cap and jitter. The attempt
// counter resets on the next success.
type Backoff struct {
	Initial        time.Duration
	Max            time.Duration
	JitterFraction float64 // 0.0 to 1.0

	attempt int
}

// Next returns the delay for the current attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	d := b.delay(b.attempt)
	b.attempt++
	return d
}

// Attempt returns how many delays have been handed out since the last reset.
func (b *Backoff) Attempt() int { return b.attempt }

// Reset clears the attempt counter.
func (b *Backoff) Reset() { b.attempt = 0 }

// delay computes the backoff for the given attempt with jitter.
func (b *Backoff) delay(attempt int) time.Duration {
	base := float64(b.Initial) * math.Pow(2, float64(attempt))
	if base > float64(b.Max) {
		base = float64(b.Max)
	}
	jitter := base * b.JitterFraction * (rand.Float64()*2 - 1) // +/- jitter
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transientError marks errors worth retrying indefinitely: the
// infrastructure-level unavailability errors from the source and index
// packages.
type transientError interface {
	error
	Transient() bool
}

// isTransient reports whether err is a retryable infrastructure failure.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te transientError
	return errors.As(err, &te) && te.Transient()
}
