// Package config manages the wvsync configuration file and its
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the config file wvsync looks for when --config is not given.
const DefaultPath = "wvsync.toml"

// Duration is a time.Duration that marshals as a string like "30s" in TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SourceConfig configures the relational source connection.
type SourceConfig struct {
	// DSN is the SQLite database path/DSN. Overridden by SOURCE_HOST.
	DSN string `toml:"dsn"`
}

// IndexConfig configures the search index connection.
type IndexConfig struct {
	// URL is the Weaviate endpoint. Overridden by INDEX_HOST.
	URL string `toml:"url"`
}

// CheckpointConfig configures checkpoint persistence.
type CheckpointConfig struct {
	// Path is the bbolt checkpoint database. Overridden by CHECKPOINT_PATH.
	// Place it on a volume that survives restarts.
	Path string `toml:"path"`
}

// SyncConfig configures the sync loops.
type SyncConfig struct {
	BatchSize       int      `toml:"batch_size"`
	PollInterval    Duration `toml:"poll_interval"`
	RequestTimeout  Duration `toml:"request_timeout"`
	InitialBackoff  Duration `toml:"initial_backoff"`
	MaxBackoff      Duration `toml:"max_backoff"`
	MaxLoadAttempts int      `toml:"max_load_attempts"`
}

// HealthConfig configures the health/status HTTP listener.
type HealthConfig struct {
	Listen string `toml:"listen"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json, text
}

// Config is the full wvsync configuration.
type Config struct {
	Source     SourceConfig     `toml:"source"`
	Index      IndexConfig      `toml:"index"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
	Sync       SyncConfig       `toml:"sync"`
	Health     HealthConfig     `toml:"health"`
	Log        LogConfig        `toml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source:     SourceConfig{DSN: "catalog.db"},
		Index:      IndexConfig{URL: "http://localhost:8080"},
		Checkpoint: CheckpointConfig{Path: "checkpoints.db"},
		Sync: SyncConfig{
			BatchSize:       100,
			PollInterval:    Duration(60 * time.Second),
			RequestTimeout:  Duration(30 * time.Second),
			InitialBackoff:  Duration(500 * time.Millisecond),
			MaxBackoff:      Duration(60 * time.Second),
			MaxLoadAttempts: 5,
		},
		Health: HealthConfig{Listen: "0.0.0.0:8780"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the config file at path, applies environment overrides, and
// validates the result. A missing file is not an error — defaults plus
// environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv applies the recognized environment overrides.
func (c *Config) applyEnv() error {
	if v := os.Getenv("SOURCE_HOST"); v != "" {
		c.Source.DSN = v
	}
	if v := os.Getenv("INDEX_HOST"); v != "" {
		c.Index.URL = v
	}
	if v := os.Getenv("CHECKPOINT_PATH"); v != "" {
		c.Checkpoint.Path = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BATCH_SIZE %q: %w", v, err)
		}
		c.Sync.BatchSize = n
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL %q: %w", v, err)
		}
		c.Sync.PollInterval = Duration(d)
	}
	if v := os.Getenv("MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_BACKOFF %q: %w", v, err)
		}
		c.Sync.MaxBackoff = Duration(d)
	}
	return nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn must not be empty")
	}
	if c.Index.URL == "" {
		return fmt.Errorf("index.url must not be empty")
	}
	if c.Checkpoint.Path == "" {
		return fmt.Errorf("checkpoint.path must not be empty")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval must be positive")
	}
	if c.Sync.MaxBackoff < c.Sync.InitialBackoff {
		return fmt.Errorf("sync.max_backoff must be >= sync.initial_backoff")
	}
	if c.Sync.MaxLoadAttempts <= 0 {
		return fmt.Errorf("sync.max_load_attempts must be positive, got %d", c.Sync.MaxLoadAttempts)
	}
	return nil
}
