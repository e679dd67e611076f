package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/devdate/internal/server"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Examples:
  # Supabase-backed profiles, settings from .env
  devdate serve

  # Local profile store
  DEVDATE_STORE_DRIVER=sqlite devdate serve --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
}

// runServe loads the full configuration, opens the adapters it names and
// blocks in Server.Start until SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	log.Info("starting devdate",
		slog.String("version", Version),
		slog.String("commit", GitCommit),
		slog.Bool("production", cfg.IsProduction()),
	)

	deps, err := server.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("opening adapters: %w", err)
	}

	if err := server.New(cfg, deps, log).Start(); err != nil {
		log.Error("server error", slog.Any("error", err))
		return err
	}
	return nil
}
