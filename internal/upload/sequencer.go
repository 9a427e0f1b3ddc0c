// Package upload transfers converted files to the remote store and builds
// the encrypted upload records handed to the result sink.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/documentpublisher/internal/cryptoutil"
	"github.com/Lllllllleong/documentpublisher/internal/models"
	"github.com/Lllllllleong/documentpublisher/internal/remote"
)

// Sequencer uploads converted files one row at a time. Rows are processed
// sequentially in input order to bound concurrent writes against the store;
// this is a deliberate throttling choice.
type Sequencer struct {
	store     remote.Store
	dir       string
	cryptoKey string
	refTTL    time.Duration
}

// NewSequencer creates a Sequencer. retentionDays doubles as the reference
// TTL for backends with bounded reference lifetimes and is clamped to the
// backend maximum; the clamp never affects retention's deletion decision.
func NewSequencer(store remote.Store, dir, cryptoKey string, retentionDays int) *Sequencer {
	ttl := time.Duration(retentionDays) * 24 * time.Hour
	if max := store.MaxReferenceTTL(); max > 0 && ttl > max {
		ttl = max
	}
	return &Sequencer{store: store, dir: dir, cryptoKey: cryptoKey, refTTL: ttl}
}

// Upload processes every row whose artifact is absent from existing. A
// failure on one row is recorded and the next row proceeds; the returned
// list always holds exactly the rows that succeeded end to end.
func (s *Sequencer) Upload(ctx context.Context, rows []models.DocumentRow, existing remote.NameSet) ([]models.UploadedFile, []models.RowError) {
	var uploaded []models.UploadedFile
	var failures []models.RowError

	fail := func(rowID string, err error) {
		slog.Warn("Error while uploading file.", "rowId", rowID, "error", err)
		failures = append(failures, models.RowError{RowID: rowID, Stage: models.StageUpload, Reason: err.Error()})
	}

	for _, row := range rows {
		name := row.ArtifactName()
		if existing.Contains(name) {
			continue
		}

		record, err := s.uploadOne(ctx, row, name)
		if err != nil {
			fail(row.ID, err)
			continue
		}
		uploaded = append(uploaded, record)
	}

	slog.Info("Upload pass complete.", "uploaded", len(uploaded), "failed", len(failures))
	return uploaded, failures
}

func (s *Sequencer) uploadOne(ctx context.Context, row models.DocumentRow, name string) (models.UploadedFile, error) {
	localPath := filepath.Join(s.dir, name)

	// A conversion failure for this row surfaces here as a missing file;
	// rows with converted files must still go through.
	file, err := os.Open(localPath)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("converted file unavailable: %w", err)
	}
	defer file.Close()

	if err := s.store.Put(ctx, name, file); err != nil {
		return models.UploadedFile{}, err
	}

	url, err := s.store.Reference(ctx, name, s.refTTL)
	if err != nil {
		return models.UploadedFile{}, err
	}

	encryptedURL, err := cryptoutil.EncryptReference(url, s.cryptoKey)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to encrypt reference: %w", err)
	}

	return models.UploadedFile{
		RowID:        row.ID,
		Hash:         cryptoutil.HashVerificationCode(row.VerificationCode, s.cryptoKey),
		EncryptedURL: encryptedURL,
	}, nil
}
