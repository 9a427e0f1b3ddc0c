package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/Lllllllleong/documentpublisher/internal/models"
)

// GCSStore publishes artifacts to a Cloud Storage bucket. Retrieval
// references are the durable public object URLs, so MaxReferenceTTL is 0.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore wraps an existing storage client for the given bucket and
// object prefix.
func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *GCSStore) objectPath(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// List enumerates the artifacts under the configured prefix. Directory
// placeholder objects are skipped.
func (s *GCSStore) List(ctx context.Context) ([]models.RemoteArtifact, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	var artifacts []models.RemoteArtifact
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts in gs://%s/%s: %w", s.bucket, s.prefix, err)
		}
		name := strings.TrimPrefix(attrs.Name, query.Prefix)
		if name == "" {
			continue
		}
		artifacts = append(artifacts, models.RemoteArtifact{
			Name:         name,
			LastModified: attrs.Updated,
			Size:         attrs.Size,
		})
	}
	return artifacts, nil
}

// Put writes the content to the object only if it doesn't already exist.
// A precondition failure means another run already published this artifact,
// which is not a failure in an idempotent workflow.
func (s *GCSStore) Put(ctx context.Context, name string, r io.Reader) error {
	object := s.objectPath(name)
	writer := s.client.Bucket(s.bucket).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/pdf"

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("SKIPPING: Object already exists.", "gcsObject", object)
			return nil
		}
		return fmt.Errorf("failed to write to GCS object %s: %w", object, err)
	}

	if err := writer.Close(); err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("SKIPPING: Object already exists.", "gcsObject", object)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write for %s: %w", object, err)
	}
	return nil
}

// Reference returns the durable public URL for the object. GCS references
// never expire, so ttl is ignored.
func (s *GCSStore) Reference(_ context.Context, name string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, s.objectPath(name)), nil
}

// Delete removes the object.
func (s *GCSStore) Delete(ctx context.Context, name string) error {
	object := s.objectPath(name)
	if err := s.client.Bucket(s.bucket).Object(object).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %s: %w", object, err)
	}
	return nil
}

// Metadata returns the object's last-updated timestamp.
func (s *GCSStore) Metadata(ctx context.Context, name string) (time.Time, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(s.objectPath(name)).Attrs(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read attributes of %s: %w", s.objectPath(name), err)
	}
	return attrs.Updated, nil
}

// MaxReferenceTTL reports 0: GCS public URLs have no lifetime bound.
func (s *GCSStore) MaxReferenceTTL() time.Duration {
	return 0
}
