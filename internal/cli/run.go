package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	stdsync "sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wvsync/internal/checkpoint"
	"github.com/kilupskalvis/wvsync/internal/config"
	"github.com/kilupskalvis/wvsync/internal/index"
	"github.com/kilupskalvis/wvsync/internal/source"
	"github.com/kilupskalvis/wvsync/internal/sync"
	"github.com/kilupskalvis/wvsync/internal/transform"
)

// Target names, in display order. Each owns an independent checkpoint:
// the film targets driven by genre and person changes re-index films whose
// denormalized documents went stale without the film row itself changing.
const (
	TargetFilms         = "films"
	TargetGenres        = "genres"
	TargetPeople        = "people"
	TargetFilmsByGenre  = "films_by_genre"
	TargetFilmsByPerson = "films_by_person"
)

var targetNames = []string{
	TargetFilms,
	TargetGenres,
	TargetPeople,
	TargetFilmsByGenre,
	TargetFilmsByPerson,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync daemon",
	Long: `Run the sync daemon.

One sync loop per target polls the catalog for changed rows, upserts the
corresponding documents into Weaviate, and commits its watermark only after
the batch is durably indexed. Progress survives restarts via the checkpoint
database.

Examples:
  wvsync run
  wvsync run --config /etc/wvsync/wvsync.toml`,
	Run: runRun,
}

func runRun(_ *cobra.Command, _ []string) {
	cfg := loadConfig()
	logger := newLogger(cfg)

	db, err := source.Open(cfg.Source.DSN)
	if err != nil {
		exitError("open source: %v", err)
	}

	client, err := index.NewClient(cfg.Index.URL)
	if err != nil {
		exitError("create index client: %v", err)
	}

	checkpoints, err := checkpoint.NewBboltStore(cfg.Checkpoint.Path, index.SchemaVersion)
	if err != nil {
		exitError("open checkpoint store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-done
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := waitForIndex(ctx, client, cfg.Sync, logger); err != nil {
		checkpoints.Close()
		db.Close()
		return
	}

	tracker := sync.NewTracker(cfg.Sync.MaxLoadAttempts)
	opts := sync.Options{
		BatchSize:       cfg.Sync.BatchSize,
		PollInterval:    cfg.Sync.PollInterval.Std(),
		RequestTimeout:  cfg.Sync.RequestTimeout.Std(),
		InitialBackoff:  cfg.Sync.InitialBackoff.Std(),
		MaxBackoff:      cfg.Sync.MaxBackoff.Std(),
		JitterFraction:  0.2,
		MaxLoadAttempts: cfg.Sync.MaxLoadAttempts,
	}

	targets := buildTargets(db)
	loopErrs := make(chan error, len(targets))
	var wg stdsync.WaitGroup
	for _, t := range targets {
		loop := sync.NewLoop(t, client, checkpoints, tracker, logger, opts)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				loopErrs <- err
			}
		}()
	}

	srv := healthServer(cfg.Health.Listen, tracker)
	go func() {
		logger.Info("health endpoint listening", "listen", cfg.Health.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("wvsync started", "targets", len(targets), "source", cfg.Source.DSN, "index", cfg.Index.URL)

	var fatal error
	select {
	case <-ctx.Done():
	case fatal = <-loopErrs:
		// A loop only returns an error for an unusable checkpoint. Nothing
		// can be synced safely past that point; stop everything.
		logger.Error("sync loop failed", "error", fatal)
		cancel()
	}

	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", "error", err)
	}

	checkpoints.Close()
	db.Close()

	if fatal != nil {
		os.Exit(1)
	}
	logger.Info("wvsync stopped")
}

// buildTargets wires the extractors and transformers for every sync target.
func buildTargets(db *source.DB) []sync.Target {
	return []sync.Target{
		{Name: TargetFilms, Extractor: source.NewFilmExtractor(db), Transformer: transform.FilmTransformer{}},
		{Name: TargetGenres, Extractor: source.NewGenreExtractor(db), Transformer: transform.GenreTransformer{}},
		{Name: TargetPeople, Extractor: source.NewPersonExtractor(db), Transformer: transform.PersonTransformer{}},
		{Name: TargetFilmsByGenre, Extractor: source.NewFilmsByGenreExtractor(db), Transformer: transform.FilmTransformer{}},
		{Name: TargetFilmsByPerson, Extractor: source.NewFilmsByPersonExtractor(db), Transformer: transform.FilmTransformer{}},
	}
}

// waitForIndex blocks until the index answers and carries the expected
// classes, backing off between attempts. Returns only on success or when
// ctx is cancelled.
func waitForIndex(ctx context.Context, client *index.Client, cfg config.SyncConfig, logger *slog.Logger) error {
	b := sync.Backoff{
		Initial:        cfg.InitialBackoff.Std(),
		Max:            cfg.MaxBackoff.Std(),
		JitterFraction: 0.2,
	}
	for {
		reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout.Std())
		err := client.Ping(reqCtx)
		if err == nil {
			err = client.EnsureSchema(reqCtx)
		}
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		d := b.Next()
		logger.Warn("index not ready, retrying", "delay", d, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}

// healthServer exposes liveness, readiness, and per-target status.
func healthServer(listen string, tracker *sync.Tracker) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !tracker.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("degraded\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tracker.Snapshot())
	})

	return &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
