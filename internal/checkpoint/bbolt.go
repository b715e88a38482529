package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kilupskalvis/wvsync/internal/models"
)

var bucketCheckpoints = []byte("checkpoints")

// BboltStore implements Store using bbolt.
type BboltStore struct {
	db            *bolt.DB
	schemaVersion int
}

// NewBboltStore opens or creates a bbolt checkpoint database at the given
// path. schemaVersion is the index schema version the running binary writes;
// loading a checkpoint recorded under a different version fails with
// ErrSchemaMismatch.
func NewBboltStore(dbPath string, schemaVersion int) (*BboltStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create checkpoint directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoints)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint bucket: %w", err)
	}

	return &BboltStore{db: db, schemaVersion: schemaVersion}, nil
}

// Close releases the bbolt database.
func (s *BboltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the checkpoint for target, or a fresh sentinel checkpoint if
// the target has never committed.
func (s *BboltStore) Load(target string) (*models.Checkpoint, error) {
	var cp *models.Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCheckpoints).Get([]byte(target))
		if data == nil {
			return nil
		}
		decoded, err := decode(target, data)
		if err != nil {
			return err
		}
		cp = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cp == nil {
		return &models.Checkpoint{SchemaVersion: s.schemaVersion}, nil
	}
	if cp.SchemaVersion != s.schemaVersion {
		return nil, fmt.Errorf("target %s: stored version %d, binary version %d: %w",
			target, cp.SchemaVersion, s.schemaVersion, ErrSchemaMismatch)
	}
	return cp, nil
}

// Commit durably records the checkpoint for target, rejecting watermark
// regressions.
func (s *BboltStore) Commit(target string, cp *models.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)

		if existing := b.Get([]byte(target)); existing != nil {
			prev, err := decode(target, existing)
			if err != nil {
				return err
			}
			if cp.Watermark.Before(prev.Watermark) {
				return fmt.Errorf("target %s: watermark regression %s -> %s",
					target, prev.Watermark, cp.Watermark)
			}
		}

		return b.Put([]byte(target), data)
	})
}

// Reset deletes the checkpoint for target.
func (s *BboltStore) Reset(target string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Delete([]byte(target))
	})
}

// List returns all stored checkpoints keyed by target.
func (s *BboltStore) List() (map[string]*models.Checkpoint, error) {
	out := make(map[string]*models.Checkpoint)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).ForEach(func(k, v []byte) error {
			cp, err := decode(string(k), v)
			if err != nil {
				return err
			}
			out[string(k)] = cp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decode(target string, data []byte) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("target %s: %w: %v", target, ErrCorrupt, err)
	}
	return &cp, nil
}

var _ Store = (*BboltStore)(nil)
