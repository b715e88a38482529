// Package index writes documents into the Weaviate search index and exposes
// the query capability the read side consumes. All writes are idempotent
// upserts keyed by deterministic document IDs.
package index

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	weaviatemodels "github.com/weaviate/weaviate/entities/models"

	"github.com/kilupskalvis/wvsync/internal/models"
)

// Client wraps the Weaviate client with wvsync-specific functionality.
type Client struct {
	client *weaviate.Client
	url    string
}

// NewClient creates a new index client for the given Weaviate URL.
func NewClient(url string) (*Client, error) {
	cfg := weaviate.Config{
		Host:   url,
		Scheme: "http",
	}

	// Handle URL parsing
	if len(url) > 7 && url[:7] == "http://" {
		cfg.Host = url[7:]
		cfg.Scheme = "http"
	} else if len(url) > 8 && url[:8] == "https://" {
		cfg.Host = url[8:]
		cfg.Scheme = "https"
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	return &Client{client: client, url: url}, nil
}

// Ping checks if the index is reachable.
func (c *Client) Ping(ctx context.Context) error {
	live, err := c.client.Misc().LiveChecker().Do(ctx)
	if err != nil {
		return &UnavailableError{Op: "liveness check", Err: err}
	}
	if !live {
		return &UnavailableError{Op: "liveness check", Err: fmt.Errorf("weaviate is not live")}
	}
	return nil
}

// UpsertBatch writes all documents in one bulk operation, keyed by each
// document's stable ID. A request-level failure is transient
// (UnavailableError); per-document rejections are structural
// (RejectedError). Re-sending an unchanged document is a no-op in effect.
func (c *Client) UpsertBatch(ctx context.Context, docs []*models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	objs := make([]*weaviatemodels.Object, len(docs))
	for i, doc := range docs {
		objs[i] = &weaviatemodels.Object{
			ID:         strfmt.UUID(doc.ID),
			Class:      doc.Class,
			Properties: doc.Properties,
		}
	}

	resp, err := c.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return &UnavailableError{Op: "bulk upsert", Err: err}
	}

	var failures []DocumentFailure
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, item := range r.Result.Errors.Error {
			if item == nil {
				continue
			}
			failures = append(failures, DocumentFailure{
				DocID:   string(r.ID),
				Message: item.Message,
			})
		}
	}
	if len(failures) > 0 {
		return &RejectedError{Failures: failures}
	}
	return nil
}
