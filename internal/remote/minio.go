package remote

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Lllllllleong/documentpublisher/internal/models"
)

// maxPresignTTL is the longest lifetime S3-compatible stores accept for a
// presigned GET URL.
const maxPresignTTL = 7 * 24 * time.Hour

// S3Store publishes artifacts to an S3-compatible store (MinIO). Retrieval
// references are presigned URLs bounded by maxPresignTTL.
type S3Store struct {
	client *minio.Client
	bucket string
	folder string
}

// S3Options carries the connection settings for an S3-compatible store.
type S3Options struct {
	Endpoint  string // host, host:port, or full URI
	AccessKey string
	SecretKey string
	Bucket    string
	Folder    string
	Port      int  // overrides any port found in Endpoint
	UseSSL    bool // forced on when Endpoint is an https:// URI
}

// NewS3Store connects to the store described by opts. The endpoint may be
// given as a bare host or as a URI; a missing port defaults to 443 for
// HTTPS and 9000 otherwise.
func NewS3Store(opts S3Options) (*S3Store, error) {
	endpoint, useSSL, err := resolveEndpoint(opts)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client for %s: %w", endpoint, err)
	}

	return &S3Store{
		client: client,
		bucket: opts.Bucket,
		folder: strings.Trim(opts.Folder, "/"),
	}, nil
}

func resolveEndpoint(opts S3Options) (string, bool, error) {
	raw := opts.Endpoint
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid S3 endpoint %q: %w", opts.Endpoint, err)
	}

	useSSL := u.Scheme == "https" || opts.UseSSL

	port := opts.Port
	if port == 0 && u.Port() != "" {
		port, _ = strconv.Atoi(u.Port())
	}
	if port == 0 {
		if useSSL {
			port = 443
		} else {
			port = 9000 // default MinIO port
		}
	}

	return fmt.Sprintf("%s:%d", u.Hostname(), port), useSSL, nil
}

func (s *S3Store) objectPath(name string) string {
	if s.folder == "" {
		return name
	}
	return s.folder + "/" + name
}

// List enumerates the artifacts under the configured folder.
func (s *S3Store) List(ctx context.Context) ([]models.RemoteArtifact, error) {
	prefix := ""
	if s.folder != "" {
		prefix = s.folder + "/"
	}

	var artifacts []models.RemoteArtifact
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list artifacts in bucket %s: %w", s.bucket, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" {
			continue
		}
		artifacts = append(artifacts, models.RemoteArtifact{
			Name:         name,
			LastModified: obj.LastModified,
			Size:         obj.Size,
		})
	}
	return artifacts, nil
}

// Put streams the content into the store.
func (s *S3Store) Put(ctx context.Context, name string, r io.Reader) error {
	object := s.objectPath(name)
	_, err := s.client.PutObject(ctx, s.bucket, object, r, -1, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", object, s.bucket, err)
	}
	return nil
}

// Reference returns a presigned GET URL for the object. The ttl is clamped
// to the backend maximum.
func (s *S3Store) Reference(ctx context.Context, name string, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > maxPresignTTL {
		ttl = maxPresignTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, s.objectPath(name), ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", s.objectPath(name), err)
	}
	return u.String(), nil
}

// Delete removes the object.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	object := s.objectPath(name)
	if err := s.client.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s from bucket %s: %w", object, s.bucket, err)
	}
	return nil
}

// Metadata returns the object's last-modified timestamp.
func (s *S3Store) Metadata(ctx context.Context, name string) (time.Time, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.objectPath(name), minio.StatObjectOptions{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat %s: %w", s.objectPath(name), err)
	}
	return info.LastModified, nil
}

// MaxReferenceTTL reports the presigned-URL lifetime cap.
func (s *S3Store) MaxReferenceTTL() time.Duration {
	return maxPresignTTL
}
