// Package remote abstracts the blob store that published artifacts live in.
// Two backends are supported: Cloud Storage, whose retrieval references are
// durable URLs with no lifetime bound, and S3-compatible stores, whose
// references are presigned URLs with a backend-imposed maximum lifetime.
package remote

import (
	"context"
	"io"
	"time"

	"github.com/Lllllllleong/documentpublisher/internal/models"
)

// Store is the remote artifact store consumed by the pipeline. All methods
// operate on bare artifact names ("<id>.pdf"); each backend maps them onto
// its configured bucket and prefix internally.
type Store interface {
	// List enumerates the artifacts currently under the configured prefix.
	List(ctx context.Context) ([]models.RemoteArtifact, error)

	// Put uploads the content under the given artifact name.
	Put(ctx context.Context, name string, r io.Reader) error

	// Reference returns a URL suitable for external retrieval of the
	// artifact. Backends with bounded reference lifetimes honor ttl;
	// backends with durable references ignore it.
	Reference(ctx context.Context, name string, ttl time.Duration) (string, error)

	// Delete removes the artifact.
	Delete(ctx context.Context, name string) error

	// Metadata returns the artifact's last-updated timestamp.
	Metadata(ctx context.Context, name string) (time.Time, error)

	// MaxReferenceTTL reports the backend's maximum reference lifetime,
	// or 0 when references never expire.
	MaxReferenceTTL() time.Duration
}

// NameSet is a lookup set of artifact names.
type NameSet map[string]struct{}

// Names collects the artifact names from a listing into a set.
func Names(artifacts []models.RemoteArtifact) NameSet {
	set := make(NameSet, len(artifacts))
	for _, a := range artifacts {
		set[a.Name] = struct{}{}
	}
	return set
}

// Contains reports whether the set holds the given name.
func (s NameSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}
