// Package config loads optional serve settings from an HCL file.
// Flags override anything set here.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// File is the on-disk configuration. Every field is optional; zero
// values defer to flag defaults.
type File struct {
	// Root is the directory of database files to serve.
	Root string `hcl:"root,optional"`
	// Addr is the listen address, e.g. ":8006".
	Addr string `hcl:"addr,optional"`
	// Metadata is the registry snapshot file name inside Root.
	Metadata string `hcl:"metadata,optional"`
	// Extensions are discovery globs, e.g. ["*.db", "*.sqlite"].
	Extensions []string `hcl:"extensions,optional"`
	// RowLimit caps rows returned by table views.
	RowLimit int `hcl:"row_limit,optional"`
}

// Load decodes the HCL file at path.
func Load(path string) (*File, error) {
	var f File
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &f, nil
}
