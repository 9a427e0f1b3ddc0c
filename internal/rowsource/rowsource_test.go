package rowsource

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(names ...string) []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(names))
	for i, n := range names {
		out[i] = pgconn.FieldDescription{Name: n}
	}
	return out
}

func TestBuildRow(t *testing.T) {
	row, err := buildRow(
		fields("id", "file", "verification_code", "department"),
		[]any{"row_1", []byte("payload"), "code", "engineering"},
	)
	require.NoError(t, err)
	assert.Equal(t, "row_1", row.ID)
	assert.Equal(t, []byte("payload"), row.Payload)
	assert.Equal(t, "code", row.VerificationCode)
	assert.Equal(t, "engineering", row.Extra["department"])

	assert.Equal(t, "row_1.pdf", row.ArtifactName())
	assert.Equal(t, "row_1.rtf", row.StagedName())
}

func TestBuildRowIntegerID(t *testing.T) {
	row, err := buildRow(
		fields("id", "file", "verification_code"),
		[]any{int64(42), []byte("p"), "c"},
	)
	require.NoError(t, err)
	assert.Equal(t, "42", row.ID)
}

func TestBuildRowRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		cols   []pgconn.FieldDescription
		values []any
	}{
		{name: "missing id", cols: fields("file", "verification_code"), values: []any{[]byte("p"), "c"}},
		{name: "missing payload", cols: fields("id", "verification_code"), values: []any{"a", "c"}},
		{name: "missing code", cols: fields("id", "file"), values: []any{"a", []byte("p")}},
		{name: "payload not bytes", cols: fields("id", "file", "verification_code"), values: []any{"a", "text", "c"}},
		{name: "unsupported id type", cols: fields("id", "file", "verification_code"), values: []any{3.14, []byte("p"), "c"}},
		{name: "empty id", cols: fields("id", "file", "verification_code"), values: []any{"", []byte("p"), "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRow(tt.cols, tt.values)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeID(t *testing.T) {
	for _, v := range []any{"a", []byte("a")} {
		id, err := normalizeID(v)
		require.NoError(t, err)
		assert.Equal(t, "a", id)
	}
	for _, v := range []any{int64(7), int32(7), int16(7), uint64(7)} {
		id, err := normalizeID(v)
		require.NoError(t, err)
		assert.Equal(t, "7", id)
	}
}
