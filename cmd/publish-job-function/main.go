package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/documentpublisher/internal/config"
	"github.com/Lllllllleong/documentpublisher/internal/gcp"
	"github.com/Lllllllleong/documentpublisher/internal/pipeline"
)

var (
	cfg     *config.Config
	once    sync.Once
	initErr error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("PublishDocuments", publishDocuments)
}

// main is required by the Go Functions Framework.
func main() {}

// publishDocuments runs one reconciliation pass per scheduler event. The
// event payload carries no parameters; everything comes from configuration.
func publishDocuments(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		cfg, initErr = config.Load(gcp.GetEnv("CONFIG_PATH", "config.json"))
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	slog.Info("Received scheduler event", "eventId", e.ID(), "eventType", e.Type())

	summary, err := pipeline.Execute(ctx, cfg)
	if err != nil {
		// Returning the error marks the invocation as failed so the
		// scheduler's retry policy applies.
		slog.Error("Publishing run aborted", "error", err)
		return err
	}

	slog.Info("Publishing run finished",
		"runId", summary.RunID,
		"succeeded", summary.SuccessCount,
		"failed", summary.FailureCount,
		"deletedArtifacts", len(summary.DeletedArtifacts))
	return nil
}
