package models

import "time"

// Record is a single source row handed from an extractor to a transformer.
// Key returns the source primary key; ChangedAt returns the row's change
// timestamp (informational — watermark advancement uses the cursor the
// extractor returns, which for cascade targets tracks a different table).
type Record interface {
	Key() string
	ChangedAt() time.Time
}

// GenreRef is a genre attached to a film.
type GenreRef struct {
	ID   string
	Name string
}

// PersonRef is a credited person attached to a film.
type PersonRef struct {
	ID       string
	FullName string
	Role     string
}

// FilmRow is a film_work row enriched with its genres and credits.
type FilmRow struct {
	ID          string
	Title       string
	Description string
	Rating      *float64
	Type        string
	UpdatedAt   time.Time
	Genres      []GenreRef
	People      []PersonRef
}

func (r *FilmRow) Key() string          { return r.ID }
func (r *FilmRow) ChangedAt() time.Time { return r.UpdatedAt }

// GenreRow is a genre row.
type GenreRow struct {
	ID        string
	Name      string
	UpdatedAt time.Time
}

func (r *GenreRow) Key() string          { return r.ID }
func (r *GenreRow) ChangedAt() time.Time { return r.UpdatedAt }

// FilmCredit is one film a person is credited on, with the credited role.
type FilmCredit struct {
	FilmID string
	Role   string
}

// PersonRow is a person row enriched with their film credits.
type PersonRow struct {
	ID        string
	FullName  string
	UpdatedAt time.Time
	Credits   []FilmCredit
}

func (r *PersonRow) Key() string          { return r.ID }
func (r *PersonRow) ChangedAt() time.Time { return r.UpdatedAt }
