package index

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// Hit is one search result.
type Hit struct {
	ID         string
	Properties map[string]interface{}
}

// searchFields lists the properties returned per class.
var searchFields = map[string][]string{
	"Film":   {"sourceId", "title", "description", "rating", "genres"},
	"Genre":  {"sourceId", "name"},
	"Person": {"sourceId", "fullName", "roles"},
}

// Search runs a BM25 keyword query against one class. This is the read-side
// query capability; the sync loops never call it.
func (c *Client) Search(ctx context.Context, class, query string, limit int) ([]Hit, error) {
	props, ok := searchFields[class]
	if !ok {
		return nil, fmt.Errorf("unknown class %q", class)
	}

	fields := make([]graphql.Field, 0, len(props)+1)
	for _, p := range props {
		fields = append(fields, graphql.Field{Name: p})
	}
	fields = append(fields, graphql.Field{
		Name:   "_additional",
		Fields: []graphql.Field{{Name: "id"}},
	})

	bm25 := (&graphql.BM25ArgumentBuilder{}).WithQuery(query)

	result, err := c.client.GraphQL().Get().
		WithClassName(class).
		WithBM25(bm25).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, &UnavailableError{Op: "search " + class, Err: err}
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search %s: %s", class, result.Errors[0].Message)
	}

	// Parse the Get response
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected search response format")
	}
	items, ok := data[class].([]interface{})
	if !ok {
		return nil, nil
	}

	hits := make([]Hit, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		hit := Hit{Properties: make(map[string]interface{}, len(obj))}
		for k, v := range obj {
			if k == "_additional" {
				if add, ok := v.(map[string]interface{}); ok {
					if id, ok := add["id"].(string); ok {
						hit.ID = id
					}
				}
				continue
			}
			hit.Properties[k] = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
