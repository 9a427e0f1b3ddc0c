// Package pipeline orchestrates one reconciliation run: diffing database
// rows against the remote listing, staging, converting, uploading, purging,
// and assembling the run summary.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/documentpublisher/internal/models"
	"github.com/Lllllllleong/documentpublisher/internal/remote"
)

// Stager materializes staged source files for rows lacking an artifact.
type Stager interface {
	Write(ctx context.Context, rows []models.DocumentRow, existing remote.NameSet) (int, []models.RowError)
}

// Converter converts every staged source file in the staging directory.
type Converter interface {
	Convert(ctx context.Context) ([]models.ConversionOutcome, error)
}

// Uploader transfers converted files and builds upload records.
type Uploader interface {
	Upload(ctx context.Context, rows []models.DocumentRow, existing remote.NameSet) ([]models.UploadedFile, []models.RowError)
}

// Retainer deletes outdated orphaned artifacts.
type Retainer interface {
	Evaluate(ctx context.Context, artifacts []models.RemoteArtifact, currentIDs map[string]struct{}) []string
}

// Driver sequences the pipeline stages. Per-item failures are aggregated
// into the summary; only precondition failures propagate as errors, with no
// partial summary.
type Driver struct {
	StagingDir string
	Stager     Stager
	Converter  Converter
	Uploader   Uploader
	Retainer   Retainer
}

// Run reconciles the given rows against the given pre-run remote listing.
// Retention always runs, against that pre-run listing and the id set of ALL
// rows: artifacts uploaded during this run are protected by their id being
// in the row set, not by listing freshness.
func (d *Driver) Run(ctx context.Context, rows []models.DocumentRow, listing []models.RemoteArtifact) (models.RunSummary, error) {
	startedAt := time.Now().UTC()
	names := remote.Names(listing)

	currentIDs := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		currentIDs[row.ID] = struct{}{}
	}

	var needsStaging []models.DocumentRow
	for _, row := range rows {
		if !names.Contains(row.ArtifactName()) {
			needsStaging = append(needsStaging, row)
		}
	}
	slog.Info("Computed reconciliation diff.",
		"rowCount", len(rows), "remoteCount", len(listing), "candidates", len(needsStaging))

	failed := make(map[string]models.RowError)
	recordFailures := func(errs []models.RowError) {
		for _, e := range errs {
			if _, seen := failed[e.RowID]; !seen {
				failed[e.RowID] = e
			}
		}
	}

	var uploads []models.UploadedFile
	if len(needsStaging) > 0 {
		written, stagingErrs := d.Stager.Write(ctx, needsStaging, names)
		recordFailures(stagingErrs)

		if written > 0 {
			outcomes, err := d.Converter.Convert(ctx)
			if err != nil {
				return models.RunSummary{}, fmt.Errorf("conversion stage failed: %w", err)
			}
			recordFailures(conversionFailures(outcomes))
			RemoveByExtension(d.StagingDir, ".rtf")

			var uploadErrs []models.RowError
			uploads, uploadErrs = d.Uploader.Upload(ctx, needsStaging, names)
			recordFailures(uploadErrs)
			RemoveByExtension(d.StagingDir, ".pdf")
		} else {
			slog.Info("Nothing staged; skipping conversion and upload.")
		}
	} else {
		slog.Info("Every row already has a remote artifact.")
	}

	// Retention is a property of existing remote state alone and must run
	// every invocation, independent of upload activity.
	deleted := d.Retainer.Evaluate(ctx, listing, currentIDs)

	summary := models.RunSummary{
		RunID:            uuid.NewString(),
		StartedAt:        startedAt,
		FinishedAt:       time.Now().UTC(),
		TotalCandidates:  len(needsStaging),
		SuccessCount:     len(uploads),
		UploadedFiles:    uploads,
		DeletedArtifacts: deleted,
	}
	for _, row := range needsStaging {
		result := models.FileResult{RowID: row.ID, OK: true}
		if e, ok := failed[row.ID]; ok {
			result.OK = false
			result.Stage = e.Stage
			result.Error = e.Reason
			summary.FailureCount++
		}
		summary.PerFileResults = append(summary.PerFileResults, result)
	}

	slog.Info("Run complete.",
		"runId", summary.RunID,
		"candidates", summary.TotalCandidates,
		"succeeded", summary.SuccessCount,
		"failed", summary.FailureCount,
		"deletedArtifacts", len(summary.DeletedArtifacts))
	return summary, nil
}

// conversionFailures maps failed conversion outcomes back onto their row ids.
func conversionFailures(outcomes []models.ConversionOutcome) []models.RowError {
	var errs []models.RowError
	for _, o := range outcomes {
		if o.Success {
			continue
		}
		id, ok := remote.IDFromName(o.FileName)
		if !ok {
			slog.Warn("Conversion failure for unmanaged file name.", "fileName", o.FileName, "error", o.Error)
			continue
		}
		errs = append(errs, models.RowError{RowID: id, Stage: models.StageConvert, Reason: o.Error})
	}
	return errs
}
