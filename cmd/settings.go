package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/staticdb/internal/config"
)

// settings is the merged view of flags and the optional config file.
// Flags that were set explicitly win over file values.
type settings struct {
	root     string
	addr     string
	metadata string
	patterns []string
	rowLimit int
}

func resolveSettings(cmd *cobra.Command) (settings, error) {
	s := settings{
		root:     rootDir,
		addr:     listenAddr,
		metadata: metadataFile,
		rowLimit: rowLimit,
	}
	if configPath == "" {
		return s, nil
	}

	file, err := config.Load(configPath)
	if err != nil {
		return s, err
	}
	flags := cmd.Flags()
	if file.Root != "" && !flags.Changed("root") {
		s.root = file.Root
	}
	if file.Addr != "" && !flags.Changed("addr") {
		s.addr = file.Addr
	}
	if file.Metadata != "" && !flags.Changed("metadata") {
		s.metadata = file.Metadata
	}
	if file.RowLimit > 0 && !flags.Changed("row-limit") {
		s.rowLimit = file.RowLimit
	}
	s.patterns = file.Extensions
	return s, nil
}
