package api

// SnapshotVersion is the current schema version of the persisted
// registry snapshot. Bump when the on-disk shape changes.
const SnapshotVersion = 1

// Snapshot is the persisted form of a registry build, written to the
// served directory after every full scan and reused by non-forced
// builds. It is plain indented JSON so operators can inspect it.
type Snapshot struct {
	// Version of the snapshot schema.
	Version int `json:"version"`
	// Databases maps logical database name (file stem) to its record.
	Databases map[string]DatabaseInfo `json:"databases"`
}

// DatabaseInfo describes one discovered database file.
type DatabaseInfo struct {
	// Hash is the hex-encoded content digest of the whole file.
	Hash string `json:"hash"`
	// File is the file name relative to the served root.
	File string `json:"file"`
	// Tables maps table name to its row count at scan time.
	Tables map[string]int64 `json:"tables"`
}
