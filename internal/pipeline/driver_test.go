package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentpublisher/internal/models"
	"github.com/Lllllllleong/documentpublisher/internal/remote"
)

type fakeStager struct {
	written     int
	errs        []models.RowError
	called      bool
	gotRows     []models.DocumentRow
	gotExisting remote.NameSet
}

func (f *fakeStager) Write(_ context.Context, rows []models.DocumentRow, existing remote.NameSet) (int, []models.RowError) {
	f.called = true
	f.gotRows = rows
	f.gotExisting = existing
	return f.written, f.errs
}

type fakeConverter struct {
	outcomes []models.ConversionOutcome
	err      error
	called   bool
}

func (f *fakeConverter) Convert(context.Context) ([]models.ConversionOutcome, error) {
	f.called = true
	return f.outcomes, f.err
}

type fakeUploader struct {
	uploads []models.UploadedFile
	errs    []models.RowError
	called  bool
}

func (f *fakeUploader) Upload(_ context.Context, rows []models.DocumentRow, _ remote.NameSet) ([]models.UploadedFile, []models.RowError) {
	f.called = true
	return f.uploads, f.errs
}

type fakeRetainer struct {
	deleted      []string
	called       bool
	gotArtifacts []models.RemoteArtifact
	gotIDs       map[string]struct{}
}

func (f *fakeRetainer) Evaluate(_ context.Context, artifacts []models.RemoteArtifact, currentIDs map[string]struct{}) []string {
	f.called = true
	f.gotArtifacts = artifacts
	f.gotIDs = currentIDs
	return f.deleted
}

func resultByRow(t *testing.T, summary models.RunSummary, rowID string) models.FileResult {
	t.Helper()
	for _, r := range summary.PerFileResults {
		if r.RowID == rowID {
			return r
		}
	}
	t.Fatalf("no result for row %q", rowID)
	return models.FileResult{}
}

func TestRunFullPass(t *testing.T) {
	rows := []models.DocumentRow{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"},
	}
	// Row e already has its artifact; old.pdf belongs to a long-gone row.
	listing := []models.RemoteArtifact{
		{Name: "e.pdf", LastModified: time.Now()},
		{Name: "old.pdf", LastModified: time.Now().AddDate(0, 0, -30)},
	}

	stager := &fakeStager{
		written: 3,
		errs:    []models.RowError{{RowID: "b", Stage: models.StageStaging, Reason: "payload is not valid gzip"}},
	}
	converter := &fakeConverter{outcomes: []models.ConversionOutcome{
		{FileName: "a.rtf", Success: true, PDFCreated: true},
		{FileName: "c.rtf", Success: false, Error: "converter crashed"},
		{FileName: "d.rtf", Success: true, PDFCreated: true},
	}}
	uploader := &fakeUploader{
		uploads: []models.UploadedFile{{RowID: "a", Hash: "h", EncryptedURL: "enc"}},
		errs: []models.RowError{
			// c failed conversion, so its converted file is missing here too.
			{RowID: "c", Stage: models.StageUpload, Reason: "converted file unavailable"},
			{RowID: "d", Stage: models.StageUpload, Reason: "bucket quota exceeded"},
		},
	}
	retainer := &fakeRetainer{deleted: []string{"old.pdf"}}

	d := &Driver{StagingDir: t.TempDir(), Stager: stager, Converter: converter, Uploader: uploader, Retainer: retainer}
	summary, err := d.Run(context.Background(), rows, listing)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 4, summary.TotalCandidates, "row e already published")
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 3, summary.FailureCount)
	assert.Equal(t, []string{"old.pdf"}, summary.DeletedArtifacts)
	require.Len(t, summary.PerFileResults, 4)

	assert.True(t, resultByRow(t, summary, "a").OK)

	b := resultByRow(t, summary, "b")
	assert.False(t, b.OK)
	assert.Equal(t, models.StageStaging, b.Stage)

	c := resultByRow(t, summary, "c")
	assert.False(t, c.OK)
	assert.Equal(t, models.StageConvert, c.Stage, "the first failure wins over the downstream echo")
	assert.Equal(t, "converter crashed", c.Error)

	dd := resultByRow(t, summary, "d")
	assert.False(t, dd.OK)
	assert.Equal(t, models.StageUpload, dd.Stage)

	// Staging only sees the candidates, in row order.
	require.Len(t, stager.gotRows, 4)
	assert.Equal(t, "a", stager.gotRows[0].ID)
	assert.True(t, stager.gotExisting.Contains("e.pdf"))

	// Retention runs against the pre-run listing and the FULL row id set,
	// including rows that were never candidates.
	require.True(t, retainer.called)
	assert.Equal(t, listing, retainer.gotArtifacts)
	assert.Contains(t, retainer.gotIDs, "e")
	assert.Contains(t, retainer.gotIDs, "a")
	assert.Len(t, retainer.gotIDs, 5)
}

func TestRunNoCandidatesStillRunsRetention(t *testing.T) {
	rows := []models.DocumentRow{{ID: "a"}, {ID: "b"}}
	listing := []models.RemoteArtifact{{Name: "a.pdf"}, {Name: "b.pdf"}, {Name: "stale.pdf"}}

	stager := &fakeStager{}
	converter := &fakeConverter{}
	uploader := &fakeUploader{}
	retainer := &fakeRetainer{deleted: []string{"stale.pdf"}}

	d := &Driver{StagingDir: t.TempDir(), Stager: stager, Converter: converter, Uploader: uploader, Retainer: retainer}
	summary, err := d.Run(context.Background(), rows, listing)
	require.NoError(t, err)

	assert.False(t, stager.called)
	assert.False(t, converter.called)
	assert.False(t, uploader.called)
	assert.True(t, retainer.called, "retention is independent of upload activity")

	assert.Zero(t, summary.TotalCandidates)
	assert.Zero(t, summary.SuccessCount)
	assert.Zero(t, summary.FailureCount)
	assert.Equal(t, []string{"stale.pdf"}, summary.DeletedArtifacts)
}

func TestRunNothingStagedSkipsConversionAndUpload(t *testing.T) {
	rows := []models.DocumentRow{{ID: "a"}}
	stager := &fakeStager{
		written: 0,
		errs:    []models.RowError{{RowID: "a", Stage: models.StageStaging, Reason: "bad payload"}},
	}
	converter := &fakeConverter{}
	uploader := &fakeUploader{}
	retainer := &fakeRetainer{}

	d := &Driver{StagingDir: t.TempDir(), Stager: stager, Converter: converter, Uploader: uploader, Retainer: retainer}
	summary, err := d.Run(context.Background(), rows, nil)
	require.NoError(t, err)

	assert.False(t, converter.called)
	assert.False(t, uploader.called)
	assert.True(t, retainer.called)

	assert.Equal(t, 1, summary.TotalCandidates)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, models.StageStaging, resultByRow(t, summary, "a").Stage)
}

func TestRunFatalConversionAbortsWithoutSummary(t *testing.T) {
	rows := []models.DocumentRow{{ID: "a"}}
	stager := &fakeStager{written: 1}
	converter := &fakeConverter{err: fmt.Errorf("staging directory vanished")}
	retainer := &fakeRetainer{}

	d := &Driver{StagingDir: t.TempDir(), Stager: stager, Converter: converter, Uploader: &fakeUploader{}, Retainer: retainer}
	summary, err := d.Run(context.Background(), rows, nil)
	require.Error(t, err)
	assert.Equal(t, models.RunSummary{}, summary, "a fatal failure produces no partial summary")
	assert.False(t, retainer.called)
}

func TestRunCleansStagedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.rtf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("x"), 0o644))

	rows := []models.DocumentRow{{ID: "a"}}
	d := &Driver{
		StagingDir: dir,
		Stager:     &fakeStager{written: 1},
		Converter:  &fakeConverter{outcomes: []models.ConversionOutcome{{FileName: "a.rtf", Success: true, PDFCreated: true}}},
		Uploader:   &fakeUploader{uploads: []models.UploadedFile{{RowID: "a"}}},
		Retainer:   &fakeRetainer{},
	}
	_, err := d.Run(context.Background(), rows, nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files never outlive the run")
}

func TestRunIsIdempotentOnRerun(t *testing.T) {
	// After a successful run the listing contains the artifact; a second run
	// with the same rows finds nothing to do and touches nothing.
	rows := []models.DocumentRow{{ID: "a"}}
	listing := []models.RemoteArtifact{{Name: "a.pdf"}}

	uploader := &fakeUploader{}
	d := &Driver{StagingDir: t.TempDir(), Stager: &fakeStager{}, Converter: &fakeConverter{}, Uploader: uploader, Retainer: &fakeRetainer{}}
	summary, err := d.Run(context.Background(), rows, listing)
	require.NoError(t, err)

	assert.False(t, uploader.called)
	assert.Zero(t, summary.TotalCandidates)
	assert.Empty(t, summary.UploadedFiles)
}
