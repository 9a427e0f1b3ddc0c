package gcp

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// NewStorageClient creates a Cloud Storage client, optionally with an explicit
// service-account credentials file. It centralizes client creation so both
// entry points wire storage the same way.
func NewStorageClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	if credentialsFile != "" {
		client, err := storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		return client, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}
