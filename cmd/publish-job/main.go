package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/Lllllllleong/documentpublisher/internal/config"
	"github.com/Lllllllleong/documentpublisher/internal/pipeline"
)

func main() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.json", "path to the job configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	summary, err := pipeline.Execute(context.Background(), cfg)
	if err != nil {
		slog.Error("Publishing run aborted", "error", err)
		os.Exit(1)
	}

	slog.Info("Publishing run finished",
		"runId", summary.RunID,
		"succeeded", summary.SuccessCount,
		"failed", summary.FailureCount,
		"deletedArtifacts", len(summary.DeletedArtifacts))
}
