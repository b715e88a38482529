// Package cli implements the command-line interface for wvsync.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wvsync/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "wvsync",
	Short: "Movies catalog search synchronizer",
	Long: `wvsync keeps a Weaviate search index in step with the relational
movies catalog. It tails each catalog table behind a durable watermark,
transforms changed rows into search documents, and bulk-upserts them so
that re-delivery after a crash is harmless.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config",
		envOrDefault("WVSYNC_CONFIG", config.DefaultPath), "Path to the config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(searchCmd)
}

// loadConfig loads the config file plus environment overrides, exiting on error.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		exitError("%v", err)
	}
	return cfg
}

// newLogger builds the slog logger described by the log section.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// envOrDefault returns the value of the environment variable key, or defaultVal if unset.
func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
