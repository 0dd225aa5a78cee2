package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/staticdb/internal/fingerprint"
	"github.com/agentic-research/staticdb/internal/registry"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Force registry regeneration and exit",
	Long: `Re-scan the served directory, re-hash every database file, and
rewrite the registry snapshot. The serve mode reuses the snapshot on
startup, so run this after adding or replacing database files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		reg := registry.New(registry.Config{
			Root:         settings.root,
			MetadataFile: settings.metadata,
			Patterns:     settings.patterns,
		})
		if err := reg.Build(true); err != nil {
			return fmt.Errorf("build registry: %w", err)
		}
		for _, rec := range reg.Databases() {
			fmt.Printf("%s-%s\t%s\t%d tables\n",
				rec.Name, fingerprint.Prefix(rec.Digest), rec.FilePath, len(rec.Tables))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
