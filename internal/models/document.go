package models

// Document is the transformed representation written to the search index.
// ID is a deterministic UUID derived from the source record's primary key,
// so re-sending the same document is an idempotent overwrite.
type Document struct {
	ID         string
	Class      string
	Properties map[string]interface{}
}
