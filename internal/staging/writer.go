// Package staging materializes row payloads into the local staging
// directory ahead of conversion.
package staging

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/documentpublisher/internal/models"
	"github.com/Lllllllleong/documentpublisher/internal/remote"
)

// rtfGroupStart opens the top-level RTF group. Payloads sometimes carry
// export junk ahead of it; everything before the group is stripped.
var rtfGroupStart = []byte(`{\rtf`)

// Writer decodes row payloads and writes one staged source file per row
// that has no remote artifact yet.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir, creating the directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Write stages every row whose artifact name is absent from existing. A
// decode or write failure for one row excludes that row and continues; it
// never aborts the batch. Returns the number of files written and the
// per-row failures.
func (w *Writer) Write(ctx context.Context, rows []models.DocumentRow, existing remote.NameSet) (int, []models.RowError) {
	written := 0
	var failures []models.RowError

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		if existing.Contains(row.ArtifactName()) {
			continue
		}

		content, err := decodePayload(row.Payload)
		if err != nil {
			slog.Warn("Skipping row: payload could not be decoded.", "rowId", row.ID, "error", err)
			failures = append(failures, models.RowError{RowID: row.ID, Stage: models.StageStaging, Reason: err.Error()})
			continue
		}

		path := filepath.Join(w.dir, row.StagedName())
		if err := os.WriteFile(path, content, 0o644); err != nil {
			slog.Warn("Skipping row: staged file could not be written.", "rowId", row.ID, "error", err)
			failures = append(failures, models.RowError{RowID: row.ID, Stage: models.StageStaging, Reason: err.Error()})
			continue
		}
		written++
	}

	if written == 0 {
		slog.Info("There are no files to stage for now.")
	} else {
		slog.Info("Staged source files.", "fileCount", written)
	}
	return written, failures
}

// decodePayload gunzips a row payload and normalizes it to start at the
// top-level RTF group.
func decodePayload(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("payload is not valid gzip: %w", err)
	}
	defer zr.Close()

	content, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}

	idx := bytes.Index(content, rtfGroupStart)
	if idx < 0 {
		return nil, fmt.Errorf("decompressed payload contains no RTF group")
	}
	return content[idx:], nil
}
