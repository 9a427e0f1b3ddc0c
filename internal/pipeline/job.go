package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"

	"github.com/Lllllllleong/documentpublisher/internal/config"
	"github.com/Lllllllleong/documentpublisher/internal/convert"
	"github.com/Lllllllleong/documentpublisher/internal/gcp"
	"github.com/Lllllllleong/documentpublisher/internal/models"
	"github.com/Lllllllleong/documentpublisher/internal/remote"
	"github.com/Lllllllleong/documentpublisher/internal/results"
	"github.com/Lllllllleong/documentpublisher/internal/retention"
	"github.com/Lllllllleong/documentpublisher/internal/rowsource"
	"github.com/Lllllllleong/documentpublisher/internal/staging"
	"github.com/Lllllllleong/documentpublisher/internal/upload"
)

// Execute runs one full reconciliation job from configuration: connect the
// row source and the remote store, run the driver, then persist the summary
// and fire the downstream workflow. Shared by the CLI and function entry
// points.
func Execute(ctx context.Context, cfg *config.Config) (models.RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return models.RunSummary{}, err
	}

	// --- 1. Preconditions: converter, row source, remote store. ---
	converter, err := convert.NewConverter(cfg.StagingDir, cfg.Converter)
	if err != nil {
		return models.RunSummary{}, err
	}

	source, err := rowsource.Connect(ctx, cfg.Database.URL, cfg.Database.Query)
	if err != nil {
		return models.RunSummary{}, err
	}
	defer source.Close()

	rows, err := source.Rows(ctx)
	if err != nil {
		return models.RunSummary{}, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return models.RunSummary{}, err
	}

	listing, err := store.List(ctx)
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("remote store unreachable: %w", err)
	}

	writer, err := staging.NewWriter(cfg.StagingDir)
	if err != nil {
		return models.RunSummary{}, err
	}

	// --- 2. Run the pipeline. ---
	driver := &Driver{
		StagingDir: cfg.StagingDir,
		Stager:     writer,
		Converter:  converter,
		Uploader:   upload.NewSequencer(store, cfg.StagingDir, cfg.CryptoKey, cfg.RetentionDays),
		Retainer:   retention.NewEvaluator(store, cfg.RetentionDays),
	}
	summary, err := driver.Run(ctx, rows, listing)
	if err != nil {
		return models.RunSummary{}, err
	}

	// --- 3. Post-run side effects, best effort. ---
	persistSummary(ctx, cfg, summary)
	triggerWorkflow(ctx, cfg, summary)

	return summary, nil
}

// buildStore constructs the configured remote store backend.
func buildStore(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendGCS:
		client, err := gcp.NewStorageClient(ctx, cfg.Storage.GCS.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return remote.NewGCSStore(client, cfg.Storage.GCS.Bucket, cfg.Storage.GCS.Prefix), nil
	case config.BackendS3:
		return remote.NewS3Store(remote.S3Options{
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			Bucket:    cfg.Storage.S3.Bucket,
			Folder:    cfg.Storage.S3.Folder,
			Port:      cfg.Storage.S3.Port,
			UseSSL:    cfg.Storage.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// persistSummary writes the summary to the configured sink. The run's work
// is already durable, so failures here are logged, never propagated.
func persistSummary(ctx context.Context, cfg *config.Config, summary models.RunSummary) {
	if cfg.Results.Collection == "" {
		return
	}

	client, err := gcp.NewFirestoreClient(ctx, cfg.Results.ProjectID)
	if err != nil {
		slog.Error("Could not reach the result sink.", "error", err)
		return
	}
	defer client.Close()

	if err := results.NewSink(client, cfg.Results.Collection).Save(ctx, summary); err != nil {
		slog.Error("Failed to persist run summary.", "runId", summary.RunID, "error", err)
	}
}

// triggerWorkflow fires the optional downstream workflow.
func triggerWorkflow(ctx context.Context, cfg *config.Config, summary models.RunSummary) {
	if cfg.Workflow.ID == "" {
		return
	}

	projectID := cfg.Workflow.ProjectID
	if projectID == "" {
		projectID = cfg.Results.ProjectID
	}

	client, err := executions.NewClient(ctx)
	if err != nil {
		slog.Error("Could not create workflow executions client.", "error", err)
		return
	}
	defer client.Close()

	trigger := results.NewWorkflowTrigger(client, projectID, cfg.Workflow.Location, cfg.Workflow.ID)
	if err := trigger.Trigger(ctx, summary); err != nil {
		slog.Error("Failed to trigger downstream workflow.", "runId", summary.RunID, "error", err)
	}
}
