package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenImmutable opens a SQLite database strictly read-only in
// immutable mode: the file is never created if absent, writes are
// rejected, and SQLite assumes the file cannot change for the life of
// the connection. Database files are immutable by contract once placed
// in the served directory; mutating one behind an open handle yields
// stale reads, not corruption detection.
func OpenImmutable(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sql.Open is lazy; force the file open so missing or unreadable
	// files fail here rather than on the first query.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// QuoteIdentifier quotes a table or column name for interpolation into
// SQL text. Doubled quotes escape embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// InspectTables opens the database at path read-only, lists all user
// tables, and returns each table's exact row count. The connection is
// short-lived; long-lived handles belong to the Cache. Any error
// aborts the whole inspection so a registry build never silently
// omits a database.
func InspectTables(path string) (map[string]int64, error) {
	db, err := OpenImmutable(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query(`select name from sqlite_master where type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("list tables %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables %s: %w", path, err)
	}

	tables := make(map[string]int64, len(names))
	for _, name := range names {
		var count int64
		q := "select count(*) from " + QuoteIdentifier(name)
		if err := db.QueryRow(q).Scan(&count); err != nil {
			return nil, fmt.Errorf("count rows in %s.%s: %w", path, name, err)
		}
		tables[name] = count
	}
	return tables, nil
}
