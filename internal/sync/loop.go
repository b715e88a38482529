package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kilupskalvis/wvsync/internal/models"
	"github.com/kilupskalvis/wvsync/internal/transform"
)

// Extractor pulls a bounded batch of records changed strictly after the
// given watermark.
type Extractor interface {
	FetchChanges(ctx context.Context, after models.Watermark, limit int) (*models.ChangeBatch, error)
}

// Transformer maps one source record into an index document.
type Transformer interface {
	Transform(models.Record) (*models.Document, error)
}

// Loader bulk-upserts documents into the search index.
type Loader interface {
	UpsertBatch(ctx context.Context, docs []*models.Document) error
}

// CheckpointStore persists per-target watermark progress.
type CheckpointStore interface {
	Load(target string) (*models.Checkpoint, error)
	Commit(target string, cp *models.Checkpoint) error
}

// Target is one relational-to-index mapping with its own checkpoint.
type Target struct {
	Name        string
	Extractor   Extractor
	Transformer Transformer
}

// Options configures a sync loop.
type Options struct {
	BatchSize       int
	PollInterval    time.Duration
	RequestTimeout  time.Duration
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	JitterFraction  float64
	MaxLoadAttempts int
}

// Loop drives one target through fetch → transform → load → commit
// iterations. All state transitions for a target are strictly sequential;
// two iterations never race on the same watermark.
type Loop struct {
	target      Target
	loader      Loader
	checkpoints CheckpointStore
	health      *Tracker
	log         *slog.Logger
	opts        Options

	state         State
	watermark     models.Watermark
	schemaVersion int
	backoff       Backoff
	loadAttempts  int
}

// NewLoop creates a sync loop for one target.
func NewLoop(target Target, loader Loader, checkpoints CheckpointStore, health *Tracker, log *slog.Logger, opts Options) *Loop {
	return &Loop{
		target:      target,
		loader:      loader,
		checkpoints: checkpoints,
		health:      health,
		log:         log.With("target", target.Name),
		opts:        opts,
		backoff: Backoff{
			Initial:        opts.InitialBackoff,
			Max:            opts.MaxBackoff,
			JitterFraction: opts.JitterFraction,
		},
	}
}

// Run executes the loop until ctx is cancelled. It returns immediately
// with an error if the checkpoint cannot be loaded (corrupt or written by
// a different schema version) — the process must not guess a watermark.
func (l *Loop) Run(ctx context.Context) error {
	cp, err := l.checkpoints.Load(l.target.Name)
	if err != nil {
		return err
	}
	l.watermark = cp.Watermark
	l.schemaVersion = cp.SchemaVersion
	l.log.Info("sync loop started", "watermark", l.watermark.String())

	for {
		again := l.iterate(ctx)
		if ctx.Err() != nil {
			l.setState(StateStopped)
			l.log.Info("sync loop stopped")
			return ctx.Err()
		}
		if again {
			continue
		}
		if err := sleep(ctx, l.opts.PollInterval); err != nil {
			l.setState(StateStopped)
			l.log.Info("sync loop stopped")
			return err
		}
	}
}

// iterate runs one fetch→transform→load→commit pass. The returned flag
// requests an immediate next iteration: after a full batch (more changes
// likely pending) or after a backoff delay (retry now rather than waiting
// for the poll tick).
func (l *Loop) iterate(ctx context.Context) (again bool) {
	l.setState(StateFetching)

	fetchCtx, cancel := context.WithTimeout(ctx, l.opts.RequestTimeout)
	batch, err := l.target.Extractor.FetchChanges(fetchCtx, l.watermark, l.opts.BatchSize)
	cancel()
	if err != nil {
		return l.backOff(ctx, err)
	}

	if batch.Empty() && !l.watermark.Before(batch.Next) {
		// Nothing changed; wait for the next tick.
		l.backoff.Reset()
		l.loadAttempts = 0
		l.health.MarkSuccess(l.target.Name, l.watermark.String())
		l.setState(StateIdle)
		return false
	}

	docs := make([]*models.Document, 0, len(batch.Records))
	skipped := 0
	for _, rec := range batch.Records {
		doc, err := l.target.Transformer.Transform(rec)
		if err != nil {
			var me *transform.MalformedError
			if errors.As(err, &me) {
				// One poison row must not halt the pipeline: skip it and
				// let the watermark advance past it.
				l.log.Warn("skipping malformed record", "record", me.RecordID, "reason", me.Reason)
				skipped++
				continue
			}
			return l.backOff(ctx, err)
		}
		docs = append(docs, doc)
	}

	if len(docs) > 0 {
		l.setState(StateLoading)

		loadCtx, cancel := context.WithTimeout(ctx, l.opts.RequestTimeout)
		err = l.loader.UpsertBatch(loadCtx, docs)
		cancel()
		if err != nil {
			if isTransient(err) {
				return l.backOff(ctx, err)
			}
			return l.rejected(ctx, batch, err)
		}
	}

	l.setState(StateCommitting)
	cp := &models.Checkpoint{
		Watermark:     batch.Next,
		LastSuccess:   time.Now().UTC(),
		SchemaVersion: l.schemaVersion,
	}
	if err := l.checkpoints.Commit(l.target.Name, cp); err != nil {
		// The batch stays uncommitted and will be re-fetched and
		// re-upserted; the idempotent upsert absorbs the re-delivery.
		return l.backOff(ctx, err)
	}

	l.watermark = batch.Next
	l.backoff.Reset()
	l.loadAttempts = 0
	l.health.MarkSuccess(l.target.Name, l.watermark.String())
	l.log.Info("batch committed", "indexed", len(docs), "skipped", skipped, "watermark", l.watermark.String())
	l.setState(StateIdle)
	return batch.Full
}

// backOff handles a retryable iteration failure: record it, wait, retry.
func (l *Loop) backOff(ctx context.Context, err error) bool {
	l.health.MarkFailure(l.target.Name, err)
	l.setState(StateBackingOff)

	d := l.backoff.Next()
	if isTransient(err) {
		l.log.Warn("transient failure, backing off", "attempt", l.backoff.Attempt(), "delay", d, "error", err)
	} else {
		l.log.Error("iteration failed, backing off", "attempt", l.backoff.Attempt(), "delay", d, "error", err)
	}
	sleep(ctx, d)
	return true
}

// rejected handles a structural index rejection: bounded retries, then the
// target is blocked and readiness degrades until an operator intervenes.
// The watermark is never advanced past the offending batch — structurally
// broken data must not be dropped silently. A blocked target keeps
// re-attempting at the max-backoff cadence so an operator fix (corrected
// schema, repaired rows) is picked up without a restart.
func (l *Loop) rejected(ctx context.Context, batch *models.ChangeBatch, err error) bool {
	l.loadAttempts++
	l.health.MarkFailure(l.target.Name, err)
	l.setState(StateBackingOff)

	if l.loadAttempts >= l.opts.MaxLoadAttempts {
		l.health.MarkBlocked(l.target.Name, err)
		l.log.Error("batch rejected by index, target blocked pending operator action",
			"attempts", l.loadAttempts, "from", l.watermark.String(), "to", batch.Next.String(), "error", err)
		sleep(ctx, l.opts.MaxBackoff)
		return true
	}

	l.log.Error("batch rejected by index, retrying",
		"attempt", l.loadAttempts, "max_attempts", l.opts.MaxLoadAttempts, "error", err)
	sleep(ctx, l.backoff.Next())
	return true
}

func (l *Loop) setState(s State) {
	l.state = s
	l.health.SetState(l.target.Name, s)
}
