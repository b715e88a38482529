package index

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/wvsync/internal/transform"
)

func TestClassDefinitions_CoverTransformOutput(t *testing.T) {
	defs := classDefinitions()
	require.Len(t, defs, 3)

	byName := make(map[string]map[string]bool)
	for _, def := range defs {
		props := make(map[string]bool)
		for _, p := range def.Properties {
			props[p.Name] = true
		}
		byName[def.Class] = props
		assert.Equal(t, "none", def.Vectorizer)
	}

	// Every property the transformers emit must exist in the class layout.
	film := byName[transform.ClassFilm]
	for _, p := range []string{"sourceId", "title", "description", "filmType", "rating", "genres", "directors", "actors", "writers", "updatedAt"} {
		assert.True(t, film[p], "Film missing property %s", p)
	}
	genre := byName[transform.ClassGenre]
	for _, p := range []string{"sourceId", "name", "updatedAt"} {
		assert.True(t, genre[p], "Genre missing property %s", p)
	}
	person := byName[transform.ClassPerson]
	for _, p := range []string{"sourceId", "fullName", "filmIds", "roles", "updatedAt"} {
		assert.True(t, person[p], "Person missing property %s", p)
	}
}

func TestClassNames(t *testing.T) {
	assert.Equal(t, []string{"Film", "Genre", "Person"}, ClassNames())
}

func TestUnavailableError_Transient(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := &UnavailableError{Op: "bulk upsert", Err: inner}

	assert.True(t, err.Transient())
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestRejectedError_NotTransient(t *testing.T) {
	err := &RejectedError{Failures: []DocumentFailure{
		{DocID: "d1", Message: "invalid date"},
		{DocID: "d2", Message: "unknown property"},
	}}

	// Structural rejections must never satisfy the transient check.
	var transient interface{ Transient() bool }
	assert.False(t, errors.As(err, &transient))
	assert.Contains(t, err.Error(), "rejected 2 document(s)")
	assert.Contains(t, err.Error(), "d1: invalid date")
}
