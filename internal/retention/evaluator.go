// Package retention purges remote artifacts that are both older than the
// retention window and no longer claimed by any current database row.
package retention

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/documentpublisher/internal/models"
	"github.com/Lllllllleong/documentpublisher/internal/remote"
)

// ArtifactStore is the slice of the remote store the evaluator needs.
type ArtifactStore interface {
	Delete(ctx context.Context, name string) error
	Metadata(ctx context.Context, name string) (time.Time, error)
}

// Evaluator decides and performs artifact deletions. Artifacts are
// independent, so evaluation and deletion fan out concurrently; a failure
// on one artifact never affects another.
type Evaluator struct {
	store         ArtifactStore
	retentionDays int
	now           func() time.Time
}

// NewEvaluator creates an Evaluator with the given retention window in days.
func NewEvaluator(store ArtifactStore, retentionDays int) *Evaluator {
	return &Evaluator{store: store, retentionDays: retentionDays, now: time.Now}
}

// Evaluate deletes every artifact that is both outdated and orphaned, and
// returns the names actually deleted. currentIDs must be the id set of ALL
// current rows, not just this run's candidates: an id in that set protects
// its artifacts from deletion regardless of age. Names that do not follow
// the managed "<id>.<ext>" convention are foreign objects and are skipped.
func (e *Evaluator) Evaluate(ctx context.Context, artifacts []models.RemoteArtifact, currentIDs map[string]struct{}) []string {
	results := make([]string, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	for i, artifact := range artifacts {
		i, artifact := i, artifact
		g.Go(func() error {
			if e.processArtifact(gctx, artifact, currentIDs) {
				results[i] = artifact.Name
			}
			return nil
		})
	}
	// Workers never return an error; per-artifact failures are logged and
	// excluded from the result set.
	_ = g.Wait()

	var deleted []string
	for _, name := range results {
		if name != "" {
			deleted = append(deleted, name)
		}
	}
	return deleted
}

// processArtifact evaluates both deletion predicates independently and, when
// both hold, performs the deletion. Returns true only when the artifact was
// actually deleted.
func (e *Evaluator) processArtifact(ctx context.Context, artifact models.RemoteArtifact, currentIDs map[string]struct{}) bool {
	id, managed := remote.IDFromName(artifact.Name)
	if !managed {
		return false
	}

	if _, claimed := currentIDs[id]; claimed {
		return false
	}
	if !e.isOutdated(ctx, artifact) {
		return false
	}

	if err := e.store.Delete(ctx, artifact.Name); err != nil {
		slog.Warn("Failed to delete outdated artifact.", "artifact", artifact.Name, "error", err)
		return false
	}
	slog.Info("Removed outdated artifact from remote storage.", "artifact", artifact.Name)
	return true
}

// isOutdated fetches the artifact's metadata and compares its age against
// the retention window. Unreadable metadata means "not outdated": an
// artifact is never deleted on an uncertain age.
func (e *Evaluator) isOutdated(ctx context.Context, artifact models.RemoteArtifact) bool {
	updated, err := e.store.Metadata(ctx, artifact.Name)
	if err != nil {
		slog.Warn("Failed to check artifact age; treating as current.", "artifact", artifact.Name, "error", err)
		return false
	}
	if updated.IsZero() {
		return false
	}
	return ageInDays(e.now(), updated) >= e.retentionDays
}

// ageInDays counts whole days elapsed since the calendar day the artifact
// was last updated.
func ageInDays(now, updated time.Time) int {
	u := updated.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return int(now.UTC().Sub(day).Hours() / 24)
}
