package address

import (
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/agentic-research/staticdb/internal/store"
)

// EncodeRowPath turns an ordered tuple of primary-key values into one
// URL path segment: each value quote-plus escaped (spaces become '+'),
// joined with commas. Values must already be in the table's declared
// primary-key order; see PrimaryKeyColumns.
func EncodeRowPath(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = url.QueryEscape(v)
	}
	return strings.Join(parts, ",")
}

// DecodeRowPath reverses EncodeRowPath: split on commas, then
// quote-plus unescape each part. The segment must be the raw (still
// percent-escaped) path segment; a literal comma inside a key value
// is unsupported by this path scheme and splits the value.
func DecodeRowPath(segment string) ([]string, error) {
	parts := strings.Split(segment, ",")
	values := make([]string, len(parts))
	for i, part := range parts {
		v, err := url.QueryUnescape(part)
		if err != nil {
			return nil, fmt.Errorf("decode key segment %q: %w", part, err)
		}
		values[i] = v
	}
	return values, nil
}

// PrimaryKeyColumns returns the table's primary-key column names in
// ascending primary-key ordinal order. For a compound key the ordinal
// comes from the key declaration, not from column order in the table,
// and it is the order EncodeRowPath and DecodeRowPath agree on.
func PrimaryKeyColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query("PRAGMA table_info(" + store.QuoteIdentifier(table) + ")")
	if err != nil {
		return nil, &store.QueryError{Query: "PRAGMA table_info", Err: err}
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	type pkColumn struct {
		name    string
		ordinal int
	}
	var pks []pkColumn
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		if pk > 0 {
			pks = append(pks, pkColumn{name: name, ordinal: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table_info for %s: %w", table, err)
	}

	sort.Slice(pks, func(i, j int) bool { return pks[i].ordinal < pks[j].ordinal })
	names := make([]string, len(pks))
	for i, col := range pks {
		names[i] = col.name
	}
	return names, nil
}
