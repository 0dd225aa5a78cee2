// Package server is the HTTP surface over the registry, address
// resolver, and connection cache. It renders HTML pages or, for
// ".json" paths, JSON payloads; the core hands it resolved canonical
// addresses and executed result sets and stays agnostic to output
// format.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentic-research/staticdb/internal/address"
	"github.com/agentic-research/staticdb/internal/fingerprint"
	"github.com/agentic-research/staticdb/internal/registry"
	"github.com/agentic-research/staticdb/internal/store"
)

// DefaultRowLimit caps rows on table views. There is no pagination;
// this is the whole window.
const DefaultRowLimit = 20

// cacheControl marks responses as long-cacheable. A canonical
// (name, hash) URL identifies immutable content, so a year is safe
// for data responses and for redirects to the canonical form alike.
const cacheControl = "max-age=31536000"

// Server handles all routes. Registry and Cache are process-wide
// shared state injected at construction so tests can build isolated
// instances.
type Server struct {
	reg      *registry.Registry
	cache    *store.Cache
	logger   *slog.Logger
	rowLimit int
}

// New wires a Server. A nil logger discards nothing — pass
// slog.Default() or a test logger.
func New(reg *registry.Registry, cache *store.Cache, logger *slog.Logger, rowLimit int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	return &Server{reg: reg, cache: cache, logger: logger, rowLimit: rowLimit}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Work on the escaped path: the database and table segments are
	// unescaped individually, while the compound-key segment must stay
	// raw for the codec (an escaped comma inside a key value must not
	// act as a separator before decoding).
	path := r.URL.EscapedPath()
	switch path {
	case "/":
		s.serveIndex(w, r)
		return
	case "/favicon.ico":
		w.WriteHeader(http.StatusOK)
		return
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 1 || len(segments) > 3 {
		http.NotFound(w, r)
		return
	}

	asJSON := strings.HasSuffix(segments[len(segments)-1], ".json")
	if asJSON {
		segments[len(segments)-1] = strings.TrimSuffix(segments[len(segments)-1], ".json")
	}

	dbName, err := url.PathUnescape(segments[0])
	if err != nil {
		http.Error(w, "bad database name", http.StatusBadRequest)
		return
	}
	table := ""
	if len(segments) >= 2 {
		table, err = url.PathUnescape(segments[1])
		if err != nil {
			http.Error(w, "bad table name", http.StatusBadRequest)
			return
		}
	}

	res, err := address.Resolve(s.reg, dbName, table)
	if err != nil {
		var notFound *registry.NotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, notFound.Error(), http.StatusNotFound)
			return
		}
		s.logger.Error("resolve failed", "db", dbName, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if res.Redirect != "" {
		// Advertise the canonical target as a preload hint so clients
		// can start fetching before they follow the redirect.
		w.Header().Set("Link", fmt.Sprintf("<%s>; rel=preload", res.Redirect))
		w.Header().Set("Cache-Control", cacheControl)
		http.Redirect(w, r, res.Redirect, http.StatusFound)
		return
	}

	var data viewData
	switch len(segments) {
	case 1:
		data, err = s.databaseData(r, res)
	case 2:
		data, err = s.tableData(res, table)
	case 3:
		data, err = s.rowData(res, table, segments[2])
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, data, asJSON)
}

// databaseData runs the caller's ?sql= query, defaulting to the
// schema listing.
func (s *Server) databaseData(r *http.Request, res address.Resolution) (viewData, error) {
	conn, err := s.cache.Get(res.Name)
	if err != nil {
		return viewData{}, err
	}
	query := r.URL.Query().Get("sql")
	if query == "" {
		query = "select * from sqlite_master"
	}
	rs, err := store.Query(conn, query)
	if err != nil {
		return s.queryFailure(res, "", err)
	}
	return viewData{
		OK:       true,
		Template: "database.html",
		Database: res.Name,
		Hash:     res.Hash,
		Columns:  rs.Columns,
		Rows:     rs.Rows,
	}, nil
}

func (s *Server) tableData(res address.Resolution, table string) (viewData, error) {
	conn, err := s.cache.Get(res.Name)
	if err != nil {
		return viewData{}, err
	}
	query := fmt.Sprintf("select * from %s limit %d", store.QuoteIdentifier(table), s.rowLimit)
	rs, err := store.Query(conn, query)
	if err != nil {
		return s.queryFailure(res, table, err)
	}
	return viewData{
		OK:       true,
		Template: "table.html",
		Database: res.Name,
		Hash:     res.Hash,
		Table:    table,
		Columns:  rs.Columns,
		Rows:     rs.Rows,
	}, nil
}

func (s *Server) rowData(res address.Resolution, table, pkSegment string) (viewData, error) {
	conn, err := s.cache.Get(res.Name)
	if err != nil {
		return viewData{}, err
	}
	values, err := address.DecodeRowPath(pkSegment)
	if err != nil {
		return viewData{}, badSegment(err)
	}
	pks, err := address.PrimaryKeyColumns(conn, table)
	if err != nil {
		return s.queryFailure(res, table, err)
	}
	wheres := make([]string, len(pks))
	for i, pk := range pks {
		wheres[i] = store.QuoteIdentifier(pk) + "=?"
	}
	query := fmt.Sprintf("select * from %s where %s",
		store.QuoteIdentifier(table), strings.Join(wheres, " AND "))
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	rs, err := store.Query(conn, query, args...)
	if err != nil {
		return s.queryFailure(res, table, err)
	}
	if len(rs.Rows) == 0 {
		return viewData{}, recordNotFound(values)
	}
	return viewData{
		OK:       true,
		Template: "table.html",
		Database: res.Name,
		Hash:     res.Hash,
		Table:    table,
		Columns:  rs.Columns,
		Rows:     rs.Rows,
	}, nil
}

// queryFailure turns an engine rejection of caller SQL into a
// structured error view instead of a failed request. Anything other
// than a *store.QueryError propagates.
func (s *Server) queryFailure(res address.Resolution, table string, err error) (viewData, error) {
	var qerr *store.QueryError
	if !errors.As(err, &qerr) {
		return viewData{}, err
	}
	return viewData{
		OK:       false,
		Error:    qerr.Error(),
		Template: "database.html",
		Database: res.Name,
		Hash:     res.Hash,
		Table:    table,
	}, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *notFoundError
	if errors.As(err, &notFound) {
		http.Error(w, notFound.Error(), http.StatusNotFound)
		return
	}
	var regNotFound *registry.NotFoundError
	if errors.As(err, &regNotFound) {
		http.Error(w, regNotFound.Error(), http.StatusNotFound)
		return
	}
	var bad *badSegmentError
	if errors.As(err, &bad) {
		http.Error(w, bad.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	// The index always rebuilds: it is the operator's view of what is
	// actually on disk right now, and the one place a forced re-scan
	// is worth the hashing cost per request.
	if err := s.reg.Build(true); err != nil {
		s.logger.Error("registry rebuild failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	type entry struct {
		Name   string
		Hash   string
		Tables int
		Rows   int64
	}
	var entries []entry
	for _, rec := range s.reg.Databases() {
		var total int64
		for _, n := range rec.Tables {
			total += n
		}
		entries = append(entries, entry{
			Name:   rec.Name,
			Hash:   fingerprint.Prefix(rec.Digest),
			Tables: len(rec.Tables),
			Rows:   total,
		})
	}
	s.renderHTML(w, "index.html", map[string]any{"Databases": entries})
}

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

func recordNotFound(values []string) error {
	return &notFoundError{msg: fmt.Sprintf("Record not found: %v", values)}
}

type badSegmentError struct{ err error }

func (e *badSegmentError) Error() string { return e.err.Error() }

func (e *badSegmentError) Unwrap() error { return e.err }

func badSegment(err error) error { return &badSegmentError{err: err} }
