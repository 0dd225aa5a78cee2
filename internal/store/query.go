package store

import (
	"database/sql"
	"fmt"
)

// RowSet is an executed result: ordered column names and ordered rows.
// Renderers consume it as-is; the core is agnostic to output format.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// QueryError wraps an engine rejection of caller-supplied SQL. The
// raw engine message is passed through so the HTTP layer can surface
// it in a structured error payload instead of crashing the request.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string { return e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// Query executes caller SQL against db and materializes the full
// result. Engine errors about the query text come back as *QueryError;
// scan plumbing failures are wrapped as plain errors.
func Query(db *sql.DB, query string, args ...any) (*RowSet, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &RowSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		// The driver hands back []byte for text in some affinities;
		// normalize so renderers and JSON encoding see strings.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return result, nil
}
