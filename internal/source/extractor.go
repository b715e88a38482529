package source

import (
	"context"
	"database/sql"
	"time"

	"github.com/kilupskalvis/wvsync/internal/models"
)

// cursorWhere is the change-tracking predicate shared by all extractors:
// strictly after the (updated_at, id) cursor, ascending, bounded.
const cursorWhere = ` WHERE updated_at > ? OR (updated_at = ? AND id > ?) ORDER BY updated_at, id LIMIT ?`

// cursorArgs builds the query arguments for cursorWhere.
func cursorArgs(after models.Watermark, limit int) []interface{} {
	// The beginning-of-time sentinel sorts before every stored timestamp.
	ns := int64(-1)
	if !after.UpdatedAt.IsZero() {
		ns = after.UpdatedAt.UnixNano()
	}
	return []interface{}{ns, ns, after.ID, limit}
}

// FilmExtractor extracts changed film_work rows enriched with genres and
// credits.
type FilmExtractor struct {
	db *DB
}

// NewFilmExtractor returns an extractor over changed film_work rows.
func NewFilmExtractor(db *DB) *FilmExtractor {
	return &FilmExtractor{db: db}
}

// FetchChanges returns up to limit films changed strictly after the
// watermark, plus the watermark of the last returned row.
func (e *FilmExtractor) FetchChanges(ctx context.Context, after models.Watermark, limit int) (*models.ChangeBatch, error) {
	films, next, err := e.db.filmsChangedAfter(ctx, after, limit)
	if err != nil {
		return nil, err
	}

	if err := e.db.enrichFilms(ctx, films); err != nil {
		return nil, err
	}

	return filmBatch(films, next, len(films) == limit), nil
}

// GenreExtractor extracts changed genre rows.
type GenreExtractor struct {
	db *DB
}

// NewGenreExtractor returns an extractor over changed genre rows.
func NewGenreExtractor(db *DB) *GenreExtractor {
	return &GenreExtractor{db: db}
}

func (e *GenreExtractor) FetchChanges(ctx context.Context, after models.Watermark, limit int) (*models.ChangeBatch, error) {
	genres, next, err := e.db.genresChangedAfter(ctx, after, limit)
	if err != nil {
		return nil, err
	}

	batch := &models.ChangeBatch{Next: next, Full: len(genres) == limit}
	for _, g := range genres {
		batch.Records = append(batch.Records, g)
	}
	return batch, nil
}

// PersonExtractor extracts changed person rows with their film credits.
type PersonExtractor struct {
	db *DB
}

// NewPersonExtractor returns an extractor over changed person rows.
func NewPersonExtractor(db *DB) *PersonExtractor {
	return &PersonExtractor{db: db}
}

func (e *PersonExtractor) FetchChanges(ctx context.Context, after models.Watermark, limit int) (*models.ChangeBatch, error) {
	people, next, err := e.db.peopleChangedAfter(ctx, after, limit)
	if err != nil {
		return nil, err
	}

	if err := e.db.attachCredits(ctx, people); err != nil {
		return nil, err
	}

	batch := &models.ChangeBatch{Next: next, Full: len(people) == limit}
	for _, p := range people {
		batch.Records = append(batch.Records, p)
	}
	return batch, nil
}

// FilmsByGenreExtractor re-extracts films affected by genre changes: the
// watermark tracks genre.updated_at, the records are full film rows. A
// changed genre with no films still advances the watermark.
type FilmsByGenreExtractor struct {
	db *DB
}

// NewFilmsByGenreExtractor returns the genre→film cascade extractor.
func NewFilmsByGenreExtractor(db *DB) *FilmsByGenreExtractor {
	return &FilmsByGenreExtractor{db: db}
}

func (e *FilmsByGenreExtractor) FetchChanges(ctx context.Context, after models.Watermark, limit int) (*models.ChangeBatch, error) {
	genres, next, err := e.db.genresChangedAfter(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	if len(genres) == 0 {
		return &models.ChangeBatch{Next: next}, nil
	}

	ids := make([]string, len(genres))
	for i, g := range genres {
		ids[i] = g.ID
	}

	filmIDs, err := e.db.filmIDsByLink(ctx, "genre_film_work", "genre_id", ids)
	if err != nil {
		return nil, err
	}

	films, err := e.db.filmsByIDs(ctx, filmIDs)
	if err != nil {
		return nil, err
	}
	if err := e.db.enrichFilms(ctx, films); err != nil {
		return nil, err
	}

	return filmBatch(films, next, len(genres) == limit), nil
}

// FilmsByPersonExtractor is the person→film cascade: editing a person
// re-indexes every film crediting them.
type FilmsByPersonExtractor struct {
	db *DB
}

// NewFilmsByPersonExtractor returns the person→film cascade extractor.
func NewFilmsByPersonExtractor(db *DB) *FilmsByPersonExtractor {
	return &FilmsByPersonExtractor{db: db}
}

func (e *FilmsByPersonExtractor) FetchChanges(ctx context.Context, after models.Watermark, limit int) (*models.ChangeBatch, error) {
	people, next, err := e.db.peopleChangedAfter(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return &models.ChangeBatch{Next: next}, nil
	}

	ids := make([]string, len(people))
	for i, p := range people {
		ids[i] = p.ID
	}

	filmIDs, err := e.db.filmIDsByLink(ctx, "person_film_work", "person_id", ids)
	if err != nil {
		return nil, err
	}

	films, err := e.db.filmsByIDs(ctx, filmIDs)
	if err != nil {
		return nil, err
	}
	if err := e.db.enrichFilms(ctx, films); err != nil {
		return nil, err
	}

	return filmBatch(films, next, len(people) == limit), nil
}

func filmBatch(films []*models.FilmRow, next models.Watermark, full bool) *models.ChangeBatch {
	batch := &models.ChangeBatch{Next: next, Full: full}
	for _, f := range films {
		batch.Records = append(batch.Records, f)
	}
	return batch
}

// --- row queries ---

func (d *DB) filmsChangedAfter(ctx context.Context, after models.Watermark, limit int) ([]*models.FilmRow, models.Watermark, error) {
	query := `SELECT id, title, description, rating, type, updated_at FROM film_work` + cursorWhere

	rows, err := d.db.QueryContext(ctx, query, cursorArgs(after, limit)...)
	if err != nil {
		return nil, after, unavailable("query film_work", err)
	}
	defer rows.Close()

	var films []*models.FilmRow
	next := after
	for rows.Next() {
		var (
			f           models.FilmRow
			description sql.NullString
			rating      sql.NullFloat64
			updatedNs   int64
		)
		if err := rows.Scan(&f.ID, &f.Title, &description, &rating, &f.Type, &updatedNs); err != nil {
			return nil, after, unavailable("scan film_work", err)
		}
		f.Description = description.String
		if rating.Valid {
			v := rating.Float64
			f.Rating = &v
		}
		f.UpdatedAt = time.Unix(0, updatedNs).UTC()
		films = append(films, &f)
		next = models.Watermark{UpdatedAt: f.UpdatedAt, ID: f.ID}
	}
	if err := rows.Err(); err != nil {
		return nil, after, unavailable("iterate film_work", err)
	}
	return films, next, nil
}

func (d *DB) genresChangedAfter(ctx context.Context, after models.Watermark, limit int) ([]*models.GenreRow, models.Watermark, error) {
	query := `SELECT id, name, updated_at FROM genre` + cursorWhere

	rows, err := d.db.QueryContext(ctx, query, cursorArgs(after, limit)...)
	if err != nil {
		return nil, after, unavailable("query genre", err)
	}
	defer rows.Close()

	var genres []*models.GenreRow
	next := after
	for rows.Next() {
		var (
			g         models.GenreRow
			updatedNs int64
		)
		if err := rows.Scan(&g.ID, &g.Name, &updatedNs); err != nil {
			return nil, after, unavailable("scan genre", err)
		}
		g.UpdatedAt = time.Unix(0, updatedNs).UTC()
		genres = append(genres, &g)
		next = models.Watermark{UpdatedAt: g.UpdatedAt, ID: g.ID}
	}
	if err := rows.Err(); err != nil {
		return nil, after, unavailable("iterate genre", err)
	}
	return genres, next, nil
}

func (d *DB) peopleChangedAfter(ctx context.Context, after models.Watermark, limit int) ([]*models.PersonRow, models.Watermark, error) {
	query := `SELECT id, full_name, updated_at FROM person` + cursorWhere

	rows, err := d.db.QueryContext(ctx, query, cursorArgs(after, limit)...)
	if err != nil {
		return nil, after, unavailable("query person", err)
	}
	defer rows.Close()

	var people []*models.PersonRow
	next := after
	for rows.Next() {
		var (
			p         models.PersonRow
			updatedNs int64
		)
		if err := rows.Scan(&p.ID, &p.FullName, &updatedNs); err != nil {
			return nil, after, unavailable("scan person", err)
		}
		p.UpdatedAt = time.Unix(0, updatedNs).UTC()
		people = append(people, &p)
		next = models.Watermark{UpdatedAt: p.UpdatedAt, ID: p.ID}
	}
	if err := rows.Err(); err != nil {
		return nil, after, unavailable("iterate person", err)
	}
	return people, next, nil
}

// filmIDsByLink resolves which films reference any of the given related-row
// ids through a link table.
func (d *DB) filmIDsByLink(ctx context.Context, table, column string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT DISTINCT film_work_id FROM ` + table +
		` WHERE ` + column + ` IN (` + placeholders(len(ids)) + `) ORDER BY film_work_id`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query "+table, err)
	}
	defer rows.Close()

	var filmIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan "+table, err)
		}
		filmIDs = append(filmIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate "+table, err)
	}
	return filmIDs, nil
}

// filmsByIDs loads full film rows for the given ids, ordered by id.
func (d *DB) filmsByIDs(ctx context.Context, ids []string) ([]*models.FilmRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, title, description, rating, type, updated_at FROM film_work
		WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query film_work by id", err)
	}
	defer rows.Close()

	var films []*models.FilmRow
	for rows.Next() {
		var (
			f           models.FilmRow
			description sql.NullString
			rating      sql.NullFloat64
			updatedNs   int64
		)
		if err := rows.Scan(&f.ID, &f.Title, &description, &rating, &f.Type, &updatedNs); err != nil {
			return nil, unavailable("scan film_work by id", err)
		}
		f.Description = description.String
		if rating.Valid {
			v := rating.Float64
			f.Rating = &v
		}
		f.UpdatedAt = time.Unix(0, updatedNs).UTC()
		films = append(films, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate film_work by id", err)
	}
	return films, nil
}

// enrichFilms attaches genres and credited people to the given films.
func (d *DB) enrichFilms(ctx context.Context, films []*models.FilmRow) error {
	if len(films) == 0 {
		return nil
	}

	byID := make(map[string]*models.FilmRow, len(films))
	args := make([]interface{}, len(films))
	for i, f := range films {
		byID[f.ID] = f
		args[i] = f.ID
	}
	in := placeholders(len(films))

	genreQuery := `SELECT gfw.film_work_id, g.id, g.name
		FROM genre_film_work gfw JOIN genre g ON g.id = gfw.genre_id
		WHERE gfw.film_work_id IN (` + in + `) ORDER BY g.name, g.id`

	rows, err := d.db.QueryContext(ctx, genreQuery, args...)
	if err != nil {
		return unavailable("query film genres", err)
	}
	for rows.Next() {
		var filmID string
		var ref models.GenreRef
		if err := rows.Scan(&filmID, &ref.ID, &ref.Name); err != nil {
			rows.Close()
			return unavailable("scan film genres", err)
		}
		if f, ok := byID[filmID]; ok {
			f.Genres = append(f.Genres, ref)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return unavailable("iterate film genres", err)
	}
	rows.Close()

	personQuery := `SELECT pfw.film_work_id, p.id, p.full_name, pfw.role
		FROM person_film_work pfw JOIN person p ON p.id = pfw.person_id
		WHERE pfw.film_work_id IN (` + in + `) ORDER BY p.full_name, p.id, pfw.role`

	rows, err = d.db.QueryContext(ctx, personQuery, args...)
	if err != nil {
		return unavailable("query film credits", err)
	}
	defer rows.Close()
	for rows.Next() {
		var filmID string
		var ref models.PersonRef
		if err := rows.Scan(&filmID, &ref.ID, &ref.FullName, &ref.Role); err != nil {
			return unavailable("scan film credits", err)
		}
		if f, ok := byID[filmID]; ok {
			f.People = append(f.People, ref)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable("iterate film credits", err)
	}
	return nil
}

// attachCredits attaches film credits to the given people.
func (d *DB) attachCredits(ctx context.Context, people []*models.PersonRow) error {
	if len(people) == 0 {
		return nil
	}

	byID := make(map[string]*models.PersonRow, len(people))
	args := make([]interface{}, len(people))
	for i, p := range people {
		byID[p.ID] = p
		args[i] = p.ID
	}

	query := `SELECT person_id, film_work_id, role FROM person_film_work
		WHERE person_id IN (` + placeholders(len(people)) + `) ORDER BY film_work_id, role`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return unavailable("query person credits", err)
	}
	defer rows.Close()
	for rows.Next() {
		var personID string
		var credit models.FilmCredit
		if err := rows.Scan(&personID, &credit.FilmID, &credit.Role); err != nil {
			return unavailable("scan person credits", err)
		}
		if p, ok := byID[personID]; ok {
			p.Credits = append(p.Credits, credit)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable("iterate person credits", err)
	}
	return nil
}
