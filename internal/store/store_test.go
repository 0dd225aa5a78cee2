package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// mapResolver is a test resolver over a fixed name → path map.
type mapResolver map[string]string

func (m mapResolver) Path(name string) (string, error) {
	path, ok := m[name]
	if !ok {
		return "", fmt.Errorf("no such database: %s", name)
	}
	return path, nil
}

func createTestDB(t *testing.T, rows int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err = db.Exec(`INSERT INTO items (name) VALUES (?)`, fmt.Sprintf("item-%d", i))
		require.NoError(t, err)
	}
	return path
}

func TestOpenImmutableMissingFile(t *testing.T) {
	_, err := OpenImmutable(filepath.Join(t.TempDir(), "absent.db"))
	if err == nil {
		t.Fatal("expected open of a missing file to fail, not create it")
	}
}

func TestOpenImmutableRejectsWrites(t *testing.T) {
	path := createTestDB(t, 1)
	db, err := OpenImmutable(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`INSERT INTO items (name) VALUES ('nope')`)
	assert.Error(t, err)
}

func TestInspectTables(t *testing.T) {
	path := createTestDB(t, 7)
	tables, err := InspectTables(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"items": 7}, tables)
}

func TestCacheReturnsSameHandle(t *testing.T) {
	path := createTestDB(t, 1)
	cache := NewCache(mapResolver{"test": path})
	defer cache.Close()

	first, err := cache.Get("test")
	require.NoError(t, err)
	second, err := cache.Get("test")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCacheConcurrentFirstAccess(t *testing.T) {
	path := createTestDB(t, 1)
	cache := NewCache(mapResolver{"test": path})
	defer cache.Close()

	const goroutines = 16
	handles := make([]*sql.DB, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := cache.Get("test")
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			handles[i] = db
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, handles[0], handles[i], "all callers must observe the same handle")
	}
}

func TestCacheFailedOpenIsNotSticky(t *testing.T) {
	resolver := mapResolver{}
	cache := NewCache(resolver)
	defer cache.Close()

	_, err := cache.Get("later")
	require.Error(t, err)

	resolver["later"] = createTestDB(t, 1)
	db, err := cache.Get("later")
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestQueryMaterializesRows(t *testing.T) {
	path := createTestDB(t, 2)
	db, err := OpenImmutable(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rs, err := Query(db, `select id, name from items order by id`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, "item-0", rs.Rows[0][1], "text values are normalized to string")
}

func TestQueryMalformedSQL(t *testing.T) {
	path := createTestDB(t, 1)
	db, err := OpenImmutable(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = Query(db, `select * from no_such_table`)
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Error(), "no_such_table")
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"plain"`, QuoteIdentifier("plain"))
	assert.Equal(t, `"odd""name"`, QuoteIdentifier(`odd"name`))
}
