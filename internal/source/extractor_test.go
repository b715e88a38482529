package source

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/wvsync/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func seedFilm(t *testing.T, db *DB, id, title string, updatedNs int64) {
	t.Helper()
	_, err := db.db.Exec(
		`INSERT INTO film_work (id, title, description, rating, type, updated_at) VALUES (?, ?, ?, ?, 'movie', ?)`,
		id, title, "about "+title, 7.5, updatedNs)
	require.NoError(t, err)
}

func seedGenre(t *testing.T, db *DB, id, name string, updatedNs int64) {
	t.Helper()
	_, err := db.db.Exec(`INSERT INTO genre (id, name, updated_at) VALUES (?, ?, ?)`, id, name, updatedNs)
	require.NoError(t, err)
}

func seedPerson(t *testing.T, db *DB, id, name string, updatedNs int64) {
	t.Helper()
	_, err := db.db.Exec(`INSERT INTO person (id, full_name, updated_at) VALUES (?, ?, ?)`, id, name, updatedNs)
	require.NoError(t, err)
}

func linkGenre(t *testing.T, db *DB, filmID, genreID string) {
	t.Helper()
	_, err := db.db.Exec(`INSERT INTO genre_film_work (film_work_id, genre_id) VALUES (?, ?)`, filmID, genreID)
	require.NoError(t, err)
}

func linkPerson(t *testing.T, db *DB, filmID, personID, role string) {
	t.Helper()
	_, err := db.db.Exec(`INSERT INTO person_film_work (film_work_id, person_id, role) VALUES (?, ?, ?)`, filmID, personID, role)
	require.NoError(t, err)
}

func recordIDs(batch *models.ChangeBatch) []string {
	ids := make([]string, 0, len(batch.Records))
	for _, r := range batch.Records {
		ids = append(ids, r.Key())
	}
	return ids
}

// The canonical pagination scenario: three records, batch size two, three
// fetches walk the whole table and then report no progress.
func TestFilmExtractor_Pagination(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedFilm(t, db, "f1", "First", 1)
	seedFilm(t, db, "f2", "Second", 2)
	seedFilm(t, db, "f3", "Third", 3)

	e := NewFilmExtractor(db)

	batch, err := e.FetchChanges(ctx, models.Watermark{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, recordIDs(batch))
	assert.True(t, batch.Full)
	assert.Equal(t, models.Watermark{UpdatedAt: time.Unix(0, 2).UTC(), ID: "f2"}, batch.Next)

	batch, err = e.FetchChanges(ctx, batch.Next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"f3"}, recordIDs(batch))
	assert.False(t, batch.Full)
	assert.Equal(t, models.Watermark{UpdatedAt: time.Unix(0, 3).UTC(), ID: "f3"}, batch.Next)

	prev := batch.Next
	batch, err = e.FetchChanges(ctx, prev, 2)
	require.NoError(t, err)
	assert.True(t, batch.Empty())
	assert.Equal(t, prev, batch.Next, "empty fetch must not move the watermark")
}

// Rows sharing a timestamp are ordered by id, so a batch boundary inside an
// equal-timestamp run does not skip or repeat rows.
func TestFilmExtractor_EqualTimestampBoundary(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedFilm(t, db, "a", "A", 5)
	seedFilm(t, db, "b", "B", 5)
	seedFilm(t, db, "c", "C", 5)

	e := NewFilmExtractor(db)

	batch, err := e.FetchChanges(ctx, models.Watermark{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, recordIDs(batch))

	batch, err = e.FetchChanges(ctx, batch.Next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, recordIDs(batch))
}

func TestFilmExtractor_Enrichment(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedFilm(t, db, "f1", "Space Saga", 10)
	seedGenre(t, db, "g1", "Sci-Fi", 1)
	seedGenre(t, db, "g2", "Drama", 1)
	seedPerson(t, db, "p1", "Ada Doe", 1)
	seedPerson(t, db, "p2", "Bob Roe", 1)
	linkGenre(t, db, "f1", "g1")
	linkGenre(t, db, "f1", "g2")
	linkPerson(t, db, "f1", "p1", "director")
	linkPerson(t, db, "f1", "p1", "writer")
	linkPerson(t, db, "f1", "p2", "actor")

	batch, err := NewFilmExtractor(db).FetchChanges(ctx, models.Watermark{}, 10)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)

	film, ok := batch.Records[0].(*models.FilmRow)
	require.True(t, ok)
	assert.Equal(t, "Space Saga", film.Title)
	require.NotNil(t, film.Rating)
	assert.InDelta(t, 7.5, *film.Rating, 0.001)
	assert.Equal(t, []models.GenreRef{{ID: "g2", Name: "Drama"}, {ID: "g1", Name: "Sci-Fi"}}, film.Genres)
	assert.Equal(t, []models.PersonRef{
		{ID: "p1", FullName: "Ada Doe", Role: "director"},
		{ID: "p1", FullName: "Ada Doe", Role: "writer"},
		{ID: "p2", FullName: "Bob Roe", Role: "actor"},
	}, film.People)
}

func TestGenreExtractor_FetchChanges(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedGenre(t, db, "g1", "Sci-Fi", 1)
	seedGenre(t, db, "g2", "Drama", 2)

	batch, err := NewGenreExtractor(db).FetchChanges(ctx, models.Watermark{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, recordIDs(batch))
	assert.False(t, batch.Full)

	genre := batch.Records[1].(*models.GenreRow)
	assert.Equal(t, "Drama", genre.Name)
}

func TestPersonExtractor_Credits(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedFilm(t, db, "f1", "One", 1)
	seedFilm(t, db, "f2", "Two", 1)
	seedPerson(t, db, "p1", "Ada Doe", 5)
	linkPerson(t, db, "f1", "p1", "actor")
	linkPerson(t, db, "f2", "p1", "director")

	batch, err := NewPersonExtractor(db).FetchChanges(ctx, models.Watermark{}, 10)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)

	person := batch.Records[0].(*models.PersonRow)
	assert.Equal(t, "Ada Doe", person.FullName)
	assert.Equal(t, []models.FilmCredit{{FilmID: "f1", Role: "actor"}, {FilmID: "f2", Role: "director"}}, person.Credits)
}

// Editing a genre re-extracts every film referencing it; the watermark
// tracks the genre table.
func TestFilmsByGenreExtractor_Cascade(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedFilm(t, db, "f1", "One", 1)
	seedFilm(t, db, "f2", "Two", 1)
	seedFilm(t, db, "f3", "Three", 1)
	seedGenre(t, db, "g1", "Sci-Fi", 50)
	linkGenre(t, db, "f1", "g1")
	linkGenre(t, db, "f3", "g1")

	e := NewFilmsByGenreExtractor(db)

	batch, err := e.FetchChanges(ctx, models.Watermark{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f3"}, recordIDs(batch))
	assert.Equal(t, models.Watermark{UpdatedAt: time.Unix(0, 50).UTC(), ID: "g1"}, batch.Next)

	// Records are fully enriched film rows.
	film := batch.Records[0].(*models.FilmRow)
	assert.Equal(t, []models.GenreRef{{ID: "g1", Name: "Sci-Fi"}}, film.Genres)
}

// A changed genre with no linked films still advances the watermark,
// otherwise the loop would refetch the same genre forever.
func TestFilmsByGenreExtractor_OrphanGenreAdvances(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedGenre(t, db, "g1", "Unused", 50)

	batch, err := NewFilmsByGenreExtractor(db).FetchChanges(ctx, models.Watermark{}, 10)
	require.NoError(t, err)
	assert.True(t, batch.Empty())
	assert.Equal(t, models.Watermark{UpdatedAt: time.Unix(0, 50).UTC(), ID: "g1"}, batch.Next)
}

func TestFilmsByPersonExtractor_Cascade(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedFilm(t, db, "f1", "One", 1)
	seedFilm(t, db, "f2", "Two", 1)
	seedPerson(t, db, "p1", "Ada Doe", 30)
	linkPerson(t, db, "f2", "p1", "actor")

	batch, err := NewFilmsByPersonExtractor(db).FetchChanges(ctx, models.Watermark{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"f2"}, recordIDs(batch))
	assert.Equal(t, models.Watermark{UpdatedAt: time.Unix(0, 30).UTC(), ID: "p1"}, batch.Next)
}

func TestFetchChanges_SourceUnavailable(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Close())

	start := models.Watermark{}
	_, err := NewFilmExtractor(db).FetchChanges(ctx, start, 10)
	require.Error(t, err)

	var ue *UnavailableError
	assert.ErrorAs(t, err, &ue)
	assert.True(t, ue.Transient())
}
