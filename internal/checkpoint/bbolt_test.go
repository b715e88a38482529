package checkpoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/kilupskalvis/wvsync/internal/models"
)

func newTestStore(t *testing.T) *BboltStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := NewBboltStore(dbPath, 1)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func wm(ns int64, id string) models.Watermark {
	return models.Watermark{UpdatedAt: time.Unix(0, ns).UTC(), ID: id}
}

func TestBboltStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)

	cp, err := s.Load("films")
	require.NoError(t, err)
	assert.True(t, cp.Watermark.IsZero())
	assert.True(t, cp.LastSuccess.IsZero())
	assert.Equal(t, 1, cp.SchemaVersion)
}

func TestBboltStore_CommitLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)

	in := &models.Checkpoint{
		Watermark:     wm(42, "abc"),
		LastSuccess:   time.Now().UTC().Truncate(time.Second),
		SchemaVersion: 1,
	}
	require.NoError(t, s.Commit("films", in))

	out, err := s.Load("films")
	require.NoError(t, err)
	assert.Equal(t, in.Watermark, out.Watermark)
	assert.True(t, in.LastSuccess.Equal(out.LastSuccess))
	assert.Equal(t, 1, out.SchemaVersion)
}

func TestBboltStore_CommitRejectsRegression(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Commit("films", &models.Checkpoint{Watermark: wm(100, "b"), SchemaVersion: 1}))

	err := s.Commit("films", &models.Checkpoint{Watermark: wm(50, "a"), SchemaVersion: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watermark regression")

	// Re-committing the same watermark is fine (idempotent re-delivery).
	assert.NoError(t, s.Commit("films", &models.Checkpoint{Watermark: wm(100, "b"), SchemaVersion: 1}))
}

func TestBboltStore_TargetsAreIndependent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Commit("films", &models.Checkpoint{Watermark: wm(100, "x"), SchemaVersion: 1}))
	require.NoError(t, s.Commit("genres", &models.Checkpoint{Watermark: wm(5, "y"), SchemaVersion: 1}))

	cps, err := s.List()
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, wm(100, "x"), cps["films"].Watermark)
	assert.Equal(t, wm(5, "y"), cps["genres"].Watermark)
}

func TestBboltStore_Reset(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Commit("films", &models.Checkpoint{Watermark: wm(100, "x"), SchemaVersion: 1}))
	require.NoError(t, s.Reset("films"))

	cp, err := s.Load("films")
	require.NoError(t, err)
	assert.True(t, cp.Watermark.IsZero())

	// Resetting a target with no checkpoint is not an error.
	assert.NoError(t, s.Reset("nonexistent"))
}

func TestBboltStore_CorruptRecord(t *testing.T) {
	s := newTestStore(t)

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Put([]byte("films"), []byte("{not json"))
	})
	require.NoError(t, err)

	_, err = s.Load("films")
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = s.List()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestBboltStore_SchemaVersionMismatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")

	old, err := NewBboltStore(dbPath, 1)
	require.NoError(t, err)
	require.NoError(t, old.Commit("films", &models.Checkpoint{Watermark: wm(7, "a"), SchemaVersion: 1}))
	require.NoError(t, old.Close())

	cur, err := NewBboltStore(dbPath, 2)
	require.NoError(t, err)
	defer cur.Close()

	_, err = cur.Load("films")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestBboltStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")

	s, err := NewBboltStore(dbPath, 1)
	require.NoError(t, err)
	require.NoError(t, s.Commit("films", &models.Checkpoint{Watermark: wm(99, "z"), SchemaVersion: 1}))
	require.NoError(t, s.Close())

	s, err = NewBboltStore(dbPath, 1)
	require.NoError(t, err)
	defer s.Close()

	cp, err := s.Load("films")
	require.NoError(t, err)
	assert.Equal(t, wm(99, "z"), cp.Watermark)
}
