package staging

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentpublisher/internal/models"
	"github.com/Lllllllleong/documentpublisher/internal/remote"
)

func gzipBytes(t *testing.T, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestWriteStagesMissingRows(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	rows := []models.DocumentRow{
		{ID: "a", Payload: gzipBytes(t, []byte(`{\rtf1 hello}`))},
		{ID: "b", Payload: gzipBytes(t, []byte(`{\rtf1 world}`))},
	}
	existing := remote.NameSet{"b.pdf": {}}

	written, failures := w.Write(context.Background(), rows, existing)
	assert.Equal(t, 1, written)
	assert.Empty(t, failures)

	content, err := os.ReadFile(filepath.Join(dir, "a.rtf"))
	require.NoError(t, err)
	assert.Equal(t, `{\rtf1 hello}`, string(content))

	_, err = os.Stat(filepath.Join(dir, "b.rtf"))
	assert.True(t, os.IsNotExist(err), "rows with a remote artifact must not be staged")
}

func TestWriteStripsLeadingJunk(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	rows := []models.DocumentRow{
		{ID: "a", Payload: gzipBytes(t, []byte("export header\x00garbage"+`{\rtf1 body}`))},
	}

	written, failures := w.Write(context.Background(), rows, remote.NameSet{})
	assert.Equal(t, 1, written)
	assert.Empty(t, failures)

	content, err := os.ReadFile(filepath.Join(dir, "a.rtf"))
	require.NoError(t, err)
	assert.Equal(t, `{\rtf1 body}`, string(content))
}

func TestWriteIsolatesBadPayloads(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	rows := []models.DocumentRow{
		{ID: "bad_gzip", Payload: []byte("not gzip at all")},
		{ID: "no_rtf", Payload: gzipBytes(t, []byte("plain text, no group"))},
		{ID: "good", Payload: gzipBytes(t, []byte(`{\rtf1 fine}`))},
	}

	written, failures := w.Write(context.Background(), rows, remote.NameSet{})
	assert.Equal(t, 1, written, "the good row must survive its neighbors' failures")
	require.Len(t, failures, 2)

	byID := map[string]models.RowError{}
	for _, f := range failures {
		assert.Equal(t, models.StageStaging, f.Stage)
		byID[f.RowID] = f
	}
	assert.Contains(t, byID, "bad_gzip")
	assert.Contains(t, byID, "no_rtf")

	_, err = os.Stat(filepath.Join(dir, "good.rtf"))
	assert.NoError(t, err)
}

func TestWriteNothingToStage(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	written, failures := w.Write(context.Background(), nil, remote.NameSet{})
	assert.Zero(t, written)
	assert.Empty(t, failures)
}
