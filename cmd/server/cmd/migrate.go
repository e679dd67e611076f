package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/devdate/internal/config"
	"github.com/sakif/devdate/internal/logger"
	sqliteRepo "github.com/sakif/devdate/internal/repository/sqlite"
)

var dbPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the local SQLite profile store schema",
	Long: `Manage the schema of the local SQLite profile store.

The hosted Supabase schema is managed by Supabase itself; these commands only
apply to store.driver=sqlite.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sqliteRepo.DB, log *slog.Logger) error {
			if err := db.MigrateUp(ctx); err != nil {
				return err
			}
			return reportVersion(ctx, cmd, db, log)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sqliteRepo.DB, log *slog.Logger) error {
			if err := db.MigrateDown(ctx); err != nil {
				return err
			}
			return reportVersion(ctx, cmd, db, log)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sqliteRepo.DB, log *slog.Logger) error {
			return reportVersion(ctx, cmd, db, log)
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	migrateCmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"SQLite database path (default: store.sqlite_path from config)")
}

// withDB opens the database named by --db, or store.sqlite_path when the flag
// is empty, without running migrations. Supabase settings are not needed.
func withDB(ctx context.Context, fn func(context.Context, *sqliteRepo.DB, *slog.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadLocal(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	log, err := logger.New(cfg.Logger, os.Stderr)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	path := dbPath
	if path == "" {
		path = cfg.Store.SQLitePath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db, log.With(slog.String("database", path)))
}

func reportVersion(ctx context.Context, cmd *cobra.Command, db *sqliteRepo.DB, log *slog.Logger) error {
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	log.Debug("schema version read", slog.Int64("version", version))
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}
