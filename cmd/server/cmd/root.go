// Package cmd provides the devdate CLI commands.
//
// COMMANDS:
//
//	devdate serve            → run the HTTP API (needs Supabase settings)
//	devdate migrate up|down  → manage the local SQLite schema
//	devdate seed             → add a profile row to the local store
//	devdate version          → print build information
//
// WHY COBRA?
// Each command is a *cobra.Command registered in its file's init(). Flags,
// help text and subcommands come for free, and persistent flags on rootCmd
// (--config, --log-level) are inherited by every command.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/devdate/internal/config"
	"github.com/sakif/devdate/internal/logger"
)

// Set at build time via -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "devdate",
	Short: "Dev Dating API server",
	Long: `devdate serves the Dev Dating API: GitHub sign-in through Supabase Auth,
developer profiles enriched from public GitHub data, and profile discovery.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./config.yaml or ./configs/config.yaml, optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override (debug, info, warn, error)")
}

// loadConfig reads the full service configuration and builds the logger for it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}

	log, err := logger.New(cfg.Logger, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, log, nil
}
