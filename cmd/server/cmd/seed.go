package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/devdate/internal/model"
	sqliteRepo "github.com/sakif/devdate/internal/repository/sqlite"
)

var (
	seedID       string
	seedUsername string
	seedName     string
	seedTech     []string
)

// Supabase creates profile rows with a sign-up trigger; the local store has
// no such trigger, so rows are added by hand.
var seedCmd = &cobra.Command{
	Use:     "seed",
	Short:   "Insert a profile row into the local SQLite store",
	Example: `  devdate seed --id 6f1c0d0e-... --username octocat --tech Go,Rust`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedID == "" || seedUsername == "" {
			return errors.New("--id and --username are required")
		}

		return withDB(cmd.Context(), func(ctx context.Context, db *sqliteRepo.DB, log *slog.Logger) error {
			if err := db.MigrateUp(ctx); err != nil {
				return err
			}

			p := &model.Profile{ID: seedID, GitHubUsername: seedUsername, TechStack: seedTech}
			if seedName != "" {
				p.DisplayName = &seedName
			}
			if err := db.Insert(ctx, p); err != nil {
				return err
			}

			log.Info("profile seeded", slog.String("id", seedID), slog.String("github_username", seedUsername))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded @%s (%s)\n", seedUsername, seedID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedID, "id", "", "auth user ID the profile belongs to")
	seedCmd.Flags().StringVar(&seedUsername, "username", "", "GitHub username")
	seedCmd.Flags().StringVar(&seedName, "name", "", "display name")
	seedCmd.Flags().StringSliceVar(&seedTech, "tech", nil, "tech stack, comma separated")
	seedCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: store.sqlite_path from config)")
}
