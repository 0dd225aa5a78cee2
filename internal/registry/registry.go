package registry

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/staticdb/api"
	"github.com/agentic-research/staticdb/internal/fingerprint"
	"github.com/agentic-research/staticdb/internal/store"
)

// DefaultMetadataFile is the snapshot file name inside the served
// directory.
const DefaultMetadataFile = "build-metadata.json"

// DefaultPatterns are the file globs that make a file a database
// candidate.
var DefaultPatterns = []string{"*.db", "*.sqlite", "*.sqlite3"}

// DatabaseRecord is one discovered database file: its logical name
// (file stem), content digest, location relative to the served root,
// and per-table row counts at scan time.
type DatabaseRecord struct {
	Name     string
	Digest   string
	FilePath string
	Tables   map[string]int64
}

// Config configures a Registry.
type Config struct {
	// Root is the served directory on the OS filesystem. Connections
	// are opened against paths under it.
	Root string
	// FS overrides the filesystem used for discovery, hashing, and
	// snapshot persistence. Defaults to the OS filesystem rooted at
	// Root. Tests substitute memfs.
	FS billy.Filesystem
	// MetadataFile is the snapshot file name. Defaults to
	// DefaultMetadataFile.
	MetadataFile string
	// Patterns are the discovery globs. Defaults to DefaultPatterns.
	Patterns []string
}

// Registry maps logical database names to DatabaseRecords. It is
// process-wide shared state: lookups are safe under concurrency, and
// a rebuild replaces the whole mapping atomically — readers see the
// old complete mapping or the new one, never a partial build.
type Registry struct {
	root     string
	fsys     billy.Filesystem
	metadata string
	patterns []string

	mu      sync.RWMutex
	records map[string]*DatabaseRecord
}

// New returns an empty Registry; call Build before serving lookups.
func New(cfg Config) *Registry {
	fsys := cfg.FS
	if fsys == nil {
		fsys = osfs.New(cfg.Root)
	}
	metadata := cfg.MetadataFile
	if metadata == "" {
		metadata = DefaultMetadataFile
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Registry{
		root:     cfg.Root,
		fsys:     fsys,
		metadata: metadata,
		patterns: patterns,
		records:  map[string]*DatabaseRecord{},
	}
}

// Root returns the served directory.
func (r *Registry) Root() string { return r.root }

// Build populates the registry. When force is false and a snapshot
// file exists, the snapshot is trusted verbatim — no re-hash, no
// size or mtime check. Files changed on disk since the snapshot was
// written stay invisible until the next forced build; that staleness
// is intentional, because hashing every file on every start defeats
// the point of persisting the snapshot. Otherwise the served
// directory is re-scanned: every matching file is hashed and
// inspected, a repeated stem fails the whole build, and the resulting
// snapshot is persisted for future non-forced builds.
func (r *Registry) Build(force bool) error {
	if !force {
		if records, ok := r.loadSnapshot(); ok {
			r.swap(records)
			return nil
		}
	}

	files, err := r.discover()
	if err != nil {
		return err
	}

	records := make(map[string]*DatabaseRecord, len(files))
	for _, file := range files {
		digest, err := fingerprint.File(r.fsys, file)
		if err != nil {
			return err
		}
		tables, err := store.InspectTables(filepath.Join(r.root, file))
		if err != nil {
			return err
		}
		name := stem(file)
		records[name] = &DatabaseRecord{
			Name:     name,
			Digest:   digest,
			FilePath: file,
			Tables:   tables,
		}
	}

	if err := r.writeSnapshot(records); err != nil {
		return err
	}
	r.swap(records)
	return nil
}

// Lookup returns the record for name or a *NotFoundError.
func (r *Registry) Lookup(name string) (*DatabaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return rec, nil
}

// Path resolves name to the OS path of its backing file. Implements
// the connection cache's resolver.
func (r *Registry) Path(name string) (string, error) {
	rec, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.root, rec.FilePath), nil
}

// Databases returns the current records sorted by name, for the index
// listing.
func (r *Registry) Databases() []*DatabaseRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*DatabaseRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// discover globs the served directory and groups candidates by stem.
// Two files sharing a stem (foo.db next to foo.sqlite) would collide
// on the same logical name, so that fails the build outright rather
// than serving whichever file won the map race.
func (r *Registry) discover() ([]string, error) {
	byStem := map[string][]string{}
	var files []string
	for _, pattern := range r.patterns {
		matches, err := util.Glob(r.fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, match := range matches {
			byStem[stem(match)] = append(byStem[stem(match)], match)
			files = append(files, match)
		}
	}
	for name, group := range byStem {
		if len(group) > 1 {
			sort.Strings(group)
			return nil, &DuplicateNameError{Name: name, Files: group}
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Registry) loadSnapshot() (map[string]*DatabaseRecord, bool) {
	data, err := util.ReadFile(r.fsys, r.metadata)
	if err != nil {
		return nil, false
	}
	var snap api.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	if snap.Version != api.SnapshotVersion {
		return nil, false
	}
	records := make(map[string]*DatabaseRecord, len(snap.Databases))
	for name, info := range snap.Databases {
		records[name] = &DatabaseRecord{
			Name:     name,
			Digest:   info.Hash,
			FilePath: info.File,
			Tables:   info.Tables,
		}
	}
	return records, true
}

func (r *Registry) writeSnapshot(records map[string]*DatabaseRecord) error {
	snap := api.Snapshot{
		Version:   api.SnapshotVersion,
		Databases: make(map[string]api.DatabaseInfo, len(records)),
	}
	for name, rec := range records {
		snap.Databases[name] = api.DatabaseInfo{
			Hash:   rec.Digest,
			File:   rec.FilePath,
			Tables: rec.Tables,
		}
	}
	data, err := json.MarshalIndent(&snap, "", "    ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := util.WriteFile(r.fsys, r.metadata, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", r.metadata, err)
	}
	return nil
}

func (r *Registry) swap(records map[string]*DatabaseRecord) {
	r.mu.Lock()
	r.records = records
	r.mu.Unlock()
}

func stem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
