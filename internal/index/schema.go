package index

import (
	"context"
	"fmt"

	weaviatemodels "github.com/weaviate/weaviate/entities/models"

	"github.com/kilupskalvis/wvsync/internal/transform"
)

// SchemaVersion identifies the class layout this binary writes. Bump it
// when the layout changes; checkpoints recorded under an older version
// refuse to load until the operator resets them.
const SchemaVersion = 1

// classDefinitions returns the classes wvsync maintains.
func classDefinitions() []*weaviatemodels.Class {
	return []*weaviatemodels.Class{
		{
			Class:      transform.ClassFilm,
			Vectorizer: "none",
			Properties: []*weaviatemodels.Property{
				{Name: "sourceId", DataType: []string{"text"}},
				{Name: "title", DataType: []string{"text"}},
				{Name: "description", DataType: []string{"text"}},
				{Name: "filmType", DataType: []string{"text"}},
				{Name: "rating", DataType: []string{"number"}},
				{Name: "genres", DataType: []string{"text[]"}},
				{Name: "directors", DataType: []string{"text[]"}},
				{Name: "actors", DataType: []string{"text[]"}},
				{Name: "writers", DataType: []string{"text[]"}},
				{Name: "updatedAt", DataType: []string{"date"}},
			},
		},
		{
			Class:      transform.ClassGenre,
			Vectorizer: "none",
			Properties: []*weaviatemodels.Property{
				{Name: "sourceId", DataType: []string{"text"}},
				{Name: "name", DataType: []string{"text"}},
				{Name: "updatedAt", DataType: []string{"date"}},
			},
		},
		{
			Class:      transform.ClassPerson,
			Vectorizer: "none",
			Properties: []*weaviatemodels.Property{
				{Name: "sourceId", DataType: []string{"text"}},
				{Name: "fullName", DataType: []string{"text"}},
				{Name: "filmIds", DataType: []string{"text[]"}},
				{Name: "roles", DataType: []string{"text[]"}},
				{Name: "updatedAt", DataType: []string{"date"}},
			},
		},
	}
}

// ClassNames returns the names of the classes wvsync maintains.
func ClassNames() []string {
	defs := classDefinitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Class
	}
	return names
}

// EnsureSchema creates any missing classes. Existing classes are left
// untouched.
func (c *Client) EnsureSchema(ctx context.Context) error {
	schema, err := c.client.Schema().Getter().Do(ctx)
	if err != nil {
		return &UnavailableError{Op: "get schema", Err: err}
	}

	existing := make(map[string]bool, len(schema.Classes))
	for _, class := range schema.Classes {
		existing[class.Class] = true
	}

	for _, def := range classDefinitions() {
		if existing[def.Class] {
			continue
		}
		if err := c.client.Schema().ClassCreator().WithClass(def).Do(ctx); err != nil {
			return &UnavailableError{Op: fmt.Sprintf("create class %s", def.Class), Err: err}
		}
	}
	return nil
}
