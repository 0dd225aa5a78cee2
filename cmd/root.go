package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/staticdb/internal/registry"
	"github.com/agentic-research/staticdb/internal/server"
	"github.com/agentic-research/staticdb/internal/store"
)

var (
	rootDir      string
	listenAddr   string
	configPath   string
	metadataFile string
	rowLimit     int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "Directory of database files to serve")
	rootCmd.PersistentFlags().StringVar(&metadataFile, "metadata", registry.DefaultMetadataFile, "Registry snapshot file name inside the root")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an HCL config file")
	rootCmd.Flags().StringVarP(&listenAddr, "addr", "a", ":8006", "Listen address")
	rootCmd.Flags().IntVar(&rowLimit, "row-limit", server.DefaultRowLimit, "Maximum rows shown on table views")
}

var rootCmd = &cobra.Command{
	Use:   "staticdb",
	Short: "Serve a directory of SQLite files as immutable, content-addressed HTTP resources",
	Args:  cobra.NoArgs,
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
		// Reuse a persisted snapshot when one exists; `staticdb build`
		// is the way to force a full re-hash.
		if err := reg.Build(false); err != nil {
			return fmt.Errorf("build registry: %w", err)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		srv := server.New(reg, store.NewCache(reg), logger, settings.rowLimit)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		httpServer := &http.Server{Addr: settings.addr, Handler: srv}
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- httpServer.ListenAndServe()
		}()

		logger.Info("serving",
			"addr", settings.addr,
			"root", settings.root,
			"databases", len(reg.Databases()),
		)

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		case err := <-serveErr:
			return err
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
