// Package results persists run summaries for downstream consumers and
// optionally hands off to a notification workflow.
package results

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/documentpublisher/internal/models"
)

// Sink writes one document per run into a Firestore collection.
type Sink struct {
	client     *firestore.Client
	collection string
}

// NewSink wraps an existing Firestore client for the given collection.
func NewSink(client *firestore.Client, collection string) *Sink {
	return &Sink{client: client, collection: collection}
}

// Save persists the run summary under its run ID. The pipeline's work is
// already durable in the remote store by the time this is called, so the
// caller treats a sink failure as loggable, not fatal.
func (s *Sink) Save(ctx context.Context, summary models.RunSummary) error {
	if _, err := s.client.Collection(s.collection).Doc(summary.RunID).Set(ctx, summary); err != nil {
		return fmt.Errorf("failed to persist run summary %s: %w", summary.RunID, err)
	}
	slog.Info("Run summary persisted.", "runId", summary.RunID, "collection", s.collection)
	return nil
}
