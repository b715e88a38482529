package transform

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/wvsync/internal/models"
)

func sampleFilm() *models.FilmRow {
	rating := 8.2
	return &models.FilmRow{
		ID:          "f1",
		Title:       "Space Saga",
		Description: "a long voyage",
		Rating:      &rating,
		Type:        "movie",
		UpdatedAt:   time.Unix(0, 42).UTC(),
		Genres:      []models.GenreRef{{ID: "g1", Name: "Sci-Fi"}, {ID: "g2", Name: "Drama"}},
		People: []models.PersonRef{
			{ID: "p1", FullName: "Ada Doe", Role: "director"},
			{ID: "p2", FullName: "Bob Roe", Role: "actor"},
			{ID: "p3", FullName: "Cyd Poe", Role: "actor"},
			{ID: "p1", FullName: "Ada Doe", Role: "writer"},
			{ID: "p4", FullName: "Dan Moe", Role: "producer"}, // unknown role, dropped
		},
	}
}

func TestDocumentID_Deterministic(t *testing.T) {
	a := DocumentID(ClassFilm, "f1")
	b := DocumentID(ClassFilm, "f1")
	assert.Equal(t, a, b)

	// Valid UUID, usable as an index object key.
	_, err := uuid.Parse(a)
	assert.NoError(t, err)

	// Distinct across classes and keys.
	assert.NotEqual(t, a, DocumentID(ClassGenre, "f1"))
	assert.NotEqual(t, a, DocumentID(ClassFilm, "f2"))
}

func TestFilmTransformer_Mapping(t *testing.T) {
	doc, err := FilmTransformer{}.Transform(sampleFilm())
	require.NoError(t, err)

	assert.Equal(t, ClassFilm, doc.Class)
	assert.Equal(t, DocumentID(ClassFilm, "f1"), doc.ID)
	assert.Equal(t, "Space Saga", doc.Properties["title"])
	assert.Equal(t, "a long voyage", doc.Properties["description"])
	assert.Equal(t, "movie", doc.Properties["filmType"])
	assert.InDelta(t, 8.2, doc.Properties["rating"].(float64), 0.001)
	assert.Equal(t, []string{"Sci-Fi", "Drama"}, doc.Properties["genres"])
	assert.Equal(t, []string{"Ada Doe"}, doc.Properties["directors"])
	assert.Equal(t, []string{"Bob Roe", "Cyd Poe"}, doc.Properties["actors"])
	assert.Equal(t, []string{"Ada Doe"}, doc.Properties["writers"])
	assert.Equal(t, "f1", doc.Properties["sourceId"])
}

func TestFilmTransformer_NoRating(t *testing.T) {
	film := sampleFilm()
	film.Rating = nil

	doc, err := FilmTransformer{}.Transform(film)
	require.NoError(t, err)
	_, present := doc.Properties["rating"]
	assert.False(t, present)
}

func TestFilmTransformer_Malformed(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.FilmRow)
		reason string
	}{
		{"missing title", func(f *models.FilmRow) { f.Title = "" }, "missing title"},
		{"missing updated_at", func(f *models.FilmRow) { f.UpdatedAt = time.Time{} }, "missing updated_at"},
		{"rating out of range", func(f *models.FilmRow) { v := 11.0; f.Rating = &v }, "out of range"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			film := sampleFilm()
			tc.mutate(film)

			_, err := FilmTransformer{}.Transform(film)
			var me *MalformedError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, film.ID, me.RecordID)
			assert.Contains(t, me.Reason, tc.reason)
		})
	}
}

func TestFilmTransformer_WrongRecordType(t *testing.T) {
	_, err := FilmTransformer{}.Transform(&models.GenreRow{ID: "g1", Name: "Drama"})
	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "g1", me.RecordID)
}

func TestFilmTransformer_Deterministic(t *testing.T) {
	a, err := FilmTransformer{}.Transform(sampleFilm())
	require.NoError(t, err)
	b, err := FilmTransformer{}.Transform(sampleFilm())
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.Properties, b.Properties)
}

func TestGenreTransformer_Mapping(t *testing.T) {
	doc, err := GenreTransformer{}.Transform(&models.GenreRow{
		ID: "g1", Name: "Sci-Fi", UpdatedAt: time.Unix(0, 7).UTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, ClassGenre, doc.Class)
	assert.Equal(t, DocumentID(ClassGenre, "g1"), doc.ID)
	assert.Equal(t, "Sci-Fi", doc.Properties["name"])
}

func TestGenreTransformer_MissingName(t *testing.T) {
	_, err := GenreTransformer{}.Transform(&models.GenreRow{ID: "g1"})
	var me *MalformedError
	assert.ErrorAs(t, err, &me)
}

func TestPersonTransformer_Mapping(t *testing.T) {
	doc, err := PersonTransformer{}.Transform(&models.PersonRow{
		ID:        "p1",
		FullName:  "Ada Doe",
		UpdatedAt: time.Unix(0, 9).UTC(),
		Credits: []models.FilmCredit{
			{FilmID: "f2", Role: "actor"},
			{FilmID: "f1", Role: "director"},
			{FilmID: "f2", Role: "director"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, ClassPerson, doc.Class)
	assert.Equal(t, "Ada Doe", doc.Properties["fullName"])
	assert.Equal(t, []string{"f1", "f2"}, doc.Properties["filmIds"])
	assert.Equal(t, []string{"actor", "director"}, doc.Properties["roles"])
}
