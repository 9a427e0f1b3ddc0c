// Package rowsource loads document rows from the relational database.
package rowsource

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lllllllleong/documentpublisher/internal/models"
)

// Required columns of the configured query. Any further columns are carried
// opaquely on DocumentRow.Extra.
const (
	columnID               = "id"
	columnPayload          = "file"
	columnVerificationCode = "verification_code"
)

// Source executes the configured query against a connection pool.
type Source struct {
	pool  *pgxpool.Pool
	query string
}

// Connect establishes a connection pool to the database and verifies it.
func Connect(ctx context.Context, databaseURL, query string) (*Source, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Source{pool: pool, query: query}, nil
}

// Close closes the connection pool.
func (s *Source) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Rows runs the query and validates the result set into DocumentRows.
// Failures here are fatal to the run: a batch cannot reconcile against an
// unknown row set.
func (s *Source) Rows(ctx context.Context) ([]models.DocumentRow, error) {
	rows, err := s.pool.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("row query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var result []models.DocumentRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(result), err)
		}
		row, err := buildRow(fields, values)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(result), err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	slog.Info("Collected document rows from the database.", "rowCount", len(result))
	return result, nil
}

// buildRow maps one result row onto the fixed schema, validating the
// required columns and collecting the rest into Extra.
func buildRow(fields []pgconn.FieldDescription, values []any) (models.DocumentRow, error) {
	row := models.DocumentRow{Extra: make(map[string]any)}
	var haveID, havePayload, haveCode bool

	for i, field := range fields {
		name := field.Name
		switch name {
		case columnID:
			id, err := normalizeID(values[i])
			if err != nil {
				return models.DocumentRow{}, fmt.Errorf("column %q: %w", name, err)
			}
			row.ID = id
			haveID = true
		case columnPayload:
			payload, ok := values[i].([]byte)
			if !ok {
				return models.DocumentRow{}, fmt.Errorf("column %q must be a byte array, got %T", name, values[i])
			}
			row.Payload = payload
			havePayload = true
		case columnVerificationCode:
			switch v := values[i].(type) {
			case string:
				row.VerificationCode = v
			case []byte:
				row.VerificationCode = string(v)
			default:
				return models.DocumentRow{}, fmt.Errorf("column %q must be text, got %T", name, values[i])
			}
			haveCode = true
		default:
			row.Extra[name] = values[i]
		}
	}

	if !haveID || !havePayload || !haveCode {
		return models.DocumentRow{}, fmt.Errorf("query must return %q, %q and %q columns", columnID, columnPayload, columnVerificationCode)
	}
	if row.ID == "" {
		return models.DocumentRow{}, fmt.Errorf("column %q is empty", columnID)
	}
	return row, nil
}

// normalizeID renders the id column as a string regardless of whether the
// schema stores it as text or as an integer key.
func normalizeID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case []byte:
		return string(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case int32:
		return strconv.FormatInt(int64(id), 10), nil
	case int16:
		return strconv.FormatInt(int64(id), 10), nil
	case uint64:
		return strconv.FormatUint(id, 10), nil
	default:
		return "", fmt.Errorf("unsupported id type %T", v)
	}
}
