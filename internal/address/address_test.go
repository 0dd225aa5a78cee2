package address

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/staticdb/internal/fingerprint"
	"github.com/agentic-research/staticdb/internal/registry"
)

// buildRegistry creates a served directory holding one trivial
// database per name and returns a built registry over it.
func buildRegistry(t *testing.T, names ...string) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		db, err := sql.Open("sqlite", filepath.Join(dir, name+".db"))
		require.NoError(t, err)
		_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
	reg := registry.New(registry.Config{Root: dir})
	require.NoError(t, reg.Build(true))
	return reg
}

func prefixFor(t *testing.T, reg *registry.Registry, name string) string {
	t.Helper()
	rec, err := reg.Lookup(name)
	require.NoError(t, err)
	return fingerprint.Prefix(rec.Digest)
}

func TestResolveBareNameRedirects(t *testing.T) {
	reg := buildRegistry(t, "hello")
	expected := prefixFor(t, reg, "hello")

	res, err := Resolve(reg, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Name)
	assert.Equal(t, expected, res.Hash)
	assert.Equal(t, "/hello-"+expected, res.Redirect)
}

func TestResolveCanonical(t *testing.T) {
	reg := buildRegistry(t, "hello")
	expected := prefixFor(t, reg, "hello")

	res, err := Resolve(reg, "hello-"+expected, "")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Name)
	assert.Equal(t, expected, res.Hash)
	assert.Empty(t, res.Redirect)
}

func TestResolveStaleHashRedirects(t *testing.T) {
	reg := buildRegistry(t, "hello")
	expected := prefixFor(t, reg, "hello")

	res, err := Resolve(reg, "hello-0000000", "")
	require.NoError(t, err)
	assert.Equal(t, "/hello-"+expected, res.Redirect)
}

func TestResolveAppendsTableToRedirect(t *testing.T) {
	reg := buildRegistry(t, "hello")
	expected := prefixFor(t, reg, "hello")

	res, err := Resolve(reg, "hello", "cities")
	require.NoError(t, err)
	assert.Equal(t, "/hello-"+expected+"/cities", res.Redirect)
}

func TestResolveUnknownName(t *testing.T) {
	reg := buildRegistry(t, "hello")

	_, err := Resolve(reg, "unknown-name", "")
	var notFound *registry.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Database not found: unknown-name", err.Error())
}

func TestResolveHyphenatedName(t *testing.T) {
	reg := buildRegistry(t, "my-data")
	expected := prefixFor(t, reg, "my-data")

	// "my" is not registered, so the whole segment is the name.
	res, err := Resolve(reg, "my-data", "")
	require.NoError(t, err)
	assert.Equal(t, "my-data", res.Name)
	assert.Equal(t, "/my-data-"+expected, res.Redirect)

	res, err = Resolve(reg, "my-data-"+expected, "")
	require.NoError(t, err)
	assert.Equal(t, "my-data", res.Name)
	assert.Empty(t, res.Redirect)
}

func TestEncodeDecodeRowPath(t *testing.T) {
	cases := [][]string{
		{"42"},
		{"region west", "7"},
		{"a/b", "c?d", "e&f"},
		{"plus+sign", "percent%20literal"},
	}
	for _, values := range cases {
		segment := EncodeRowPath(values)
		decoded, err := DecodeRowPath(segment)
		require.NoError(t, err, "segment %q", segment)
		assert.Equal(t, values, decoded)
	}
}

func TestEncodeRowPathUsesPlusForSpace(t *testing.T) {
	assert.Equal(t, "new+york,10", EncodeRowPath([]string{"new york", "10"}))
}

func TestDecodeRowPathBadEscape(t *testing.T) {
	_, err := DecodeRowPath("%zz")
	assert.Error(t, err)
}

func TestPrimaryKeyColumnsOrdinalOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pk.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// Key ordinal order (seq, region) deliberately disagrees with
	// declaration order (region before seq).
	_, err = db.Exec(`CREATE TABLE readings (
		id INTEGER,
		region TEXT,
		seq INTEGER,
		PRIMARY KEY (seq, region)
	)`)
	require.NoError(t, err)

	pks, err := PrimaryKeyColumns(db, "readings")
	require.NoError(t, err)
	assert.Equal(t, []string{"seq", "region"}, pks)
}

func TestPrimaryKeyColumnsSingle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pk.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`CREATE TABLE simple (id INTEGER PRIMARY KEY, val TEXT)`)
	require.NoError(t, err)

	pks, err := PrimaryKeyColumns(db, "simple")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, pks)
}
