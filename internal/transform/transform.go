// Package transform maps source rows into the documents the search index
// expects. Transformations are pure: no I/O, no retained state.
package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilupskalvis/wvsync/internal/models"
)

// Index class names.
const (
	ClassFilm   = "Film"
	ClassGenre  = "Genre"
	ClassPerson = "Person"
)

// Credited roles carried into film documents. Unknown roles are ignored.
const (
	RoleDirector = "director"
	RoleActor    = "actor"
	RoleWriter   = "writer"
)

// docNamespace is the fixed UUIDv5 namespace for document identifiers.
// Changing it changes every document ID and forces a full resync.
var docNamespace = uuid.MustParse("7a5c8b1e-4f02-4a37-9b46-d1e05c9f6a23")

// MalformedError reports a row that cannot be mapped to a document. The
// sync loop logs and skips it; one poison row must not halt the pipeline.
type MalformedError struct {
	RecordID string
	Reason   string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed record %q: %s", e.RecordID, e.Reason)
}

// DocumentID derives the stable document identifier for a source record.
// It depends only on the class and primary key — never on watermark or
// batch position — so repeated writes of the same record are idempotent
// overwrites.
func DocumentID(class, key string) string {
	return uuid.NewSHA1(docNamespace, []byte(class+"/"+key)).String()
}

// FilmTransformer maps FilmRow records to Film documents.
type FilmTransformer struct{}

func (FilmTransformer) Transform(r models.Record) (*models.Document, error) {
	film, ok := r.(*models.FilmRow)
	if !ok {
		return nil, &MalformedError{RecordID: r.Key(), Reason: fmt.Sprintf("unexpected record type %T", r)}
	}
	if film.ID == "" {
		return nil, &MalformedError{RecordID: film.ID, Reason: "missing id"}
	}
	if film.Title == "" {
		return nil, &MalformedError{RecordID: film.ID, Reason: "missing title"}
	}
	if film.UpdatedAt.IsZero() {
		return nil, &MalformedError{RecordID: film.ID, Reason: "missing updated_at"}
	}
	if film.Rating != nil && (*film.Rating < 0 || *film.Rating > 10) {
		return nil, &MalformedError{RecordID: film.ID, Reason: fmt.Sprintf("rating %v out of range", *film.Rating)}
	}

	genres := make([]string, 0, len(film.Genres))
	for _, g := range film.Genres {
		genres = append(genres, g.Name)
	}

	props := map[string]interface{}{
		"sourceId":    film.ID,
		"title":       film.Title,
		"description": film.Description,
		"filmType":    film.Type,
		"genres":      genres,
		"directors":   namesByRole(film.People, RoleDirector),
		"actors":      namesByRole(film.People, RoleActor),
		"writers":     namesByRole(film.People, RoleWriter),
		"updatedAt":   film.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if film.Rating != nil {
		props["rating"] = *film.Rating
	}

	return &models.Document{
		ID:         DocumentID(ClassFilm, film.ID),
		Class:      ClassFilm,
		Properties: props,
	}, nil
}

// GenreTransformer maps GenreRow records to Genre documents.
type GenreTransformer struct{}

func (GenreTransformer) Transform(r models.Record) (*models.Document, error) {
	genre, ok := r.(*models.GenreRow)
	if !ok {
		return nil, &MalformedError{RecordID: r.Key(), Reason: fmt.Sprintf("unexpected record type %T", r)}
	}
	if genre.ID == "" {
		return nil, &MalformedError{RecordID: genre.ID, Reason: "missing id"}
	}
	if genre.Name == "" {
		return nil, &MalformedError{RecordID: genre.ID, Reason: "missing name"}
	}

	return &models.Document{
		ID:    DocumentID(ClassGenre, genre.ID),
		Class: ClassGenre,
		Properties: map[string]interface{}{
			"sourceId":  genre.ID,
			"name":      genre.Name,
			"updatedAt": genre.UpdatedAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

// PersonTransformer maps PersonRow records to Person documents.
type PersonTransformer struct{}

func (PersonTransformer) Transform(r models.Record) (*models.Document, error) {
	person, ok := r.(*models.PersonRow)
	if !ok {
		return nil, &MalformedError{RecordID: r.Key(), Reason: fmt.Sprintf("unexpected record type %T", r)}
	}
	if person.ID == "" {
		return nil, &MalformedError{RecordID: person.ID, Reason: "missing id"}
	}
	if person.FullName == "" {
		return nil, &MalformedError{RecordID: person.ID, Reason: "missing full_name"}
	}

	filmIDs := make([]string, 0, len(person.Credits))
	roles := make([]string, 0, len(person.Credits))
	seenFilm := make(map[string]bool)
	seenRole := make(map[string]bool)
	for _, c := range person.Credits {
		if !seenFilm[c.FilmID] {
			seenFilm[c.FilmID] = true
			filmIDs = append(filmIDs, c.FilmID)
		}
		if !seenRole[c.Role] {
			seenRole[c.Role] = true
			roles = append(roles, c.Role)
		}
	}
	sort.Strings(filmIDs)
	sort.Strings(roles)

	return &models.Document{
		ID:    DocumentID(ClassPerson, person.ID),
		Class: ClassPerson,
		Properties: map[string]interface{}{
			"sourceId":  person.ID,
			"fullName":  person.FullName,
			"filmIds":   filmIDs,
			"roles":     roles,
			"updatedAt": person.UpdatedAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

// namesByRole collects credited names for one role, preserving row order.
func namesByRole(people []models.PersonRef, role string) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		if p.Role == role {
			names = append(names, p.FullName)
		}
	}
	return names
}
