// Package address resolves raw URL fragments into canonical
// content-addressed identities: a database name plus the 7-character
// prefix of its current content digest. Stale or missing prefixes
// become redirect decisions to the canonical form, so every canonical
// URL is permanently cacheable.
package address

import (
	"strings"

	"github.com/agentic-research/staticdb/internal/fingerprint"
	"github.com/agentic-research/staticdb/internal/registry"
)

// Resolution is the outcome of resolving a name segment. When
// Redirect is non-empty the caller must redirect there instead of
// executing any query; Name and Hash are the canonical pair either
// way.
type Resolution struct {
	Name     string
	Hash     string
	Redirect string
}

// Resolve parses a URL-decoded name segment, which is either a bare
// database name or "name-hashprefix". Database names may themselves
// contain hyphens, and a hash suffix is indistinguishable from a
// hyphenated name tail without consulting the registry: the segment
// is first split on its last hyphen, and only if the left part is a
// registered name is the right part treated as a claimed hash.
// Otherwise the whole segment is tried as the name.
//
// A claimed hash that does not match the record's current digest
// prefix (including the no-hash case) yields a redirect to the
// canonical path, with table re-appended when a table context was
// supplied.
func Resolve(reg *registry.Registry, dbName, table string) (Resolution, error) {
	name := dbName
	claimed := ""
	if i := strings.LastIndex(dbName, "-"); i >= 0 {
		if _, err := reg.Lookup(dbName[:i]); err == nil {
			name = dbName[:i]
			claimed = dbName[i+1:]
		}
	}

	rec, err := reg.Lookup(name)
	if err != nil {
		return Resolution{}, err
	}

	expected := fingerprint.Prefix(rec.Digest)
	if claimed != expected {
		target := "/" + name + "-" + expected
		if table != "" {
			target += "/" + table
		}
		return Resolution{Name: name, Hash: expected, Redirect: target}, nil
	}
	return Resolution{Name: name, Hash: expected}, nil
}
