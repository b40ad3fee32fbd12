package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/migrations"
	"github.com/j4b6ski/oioioi/internal/config"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), "migrateUp",
					func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
						return migrations.Up(ctx, db)
					})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration, dropping all engine data",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), "migrateDown",
					func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
						return migrations.Down(ctx, db)
					})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the newest applied migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), "migrateVersion",
					func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
						version, err := migrations.Version(ctx, db)
						if err != nil {
							return fmt.Errorf("failed to read schema version: %w", err)
						}
						_, err = fmt.Fprintln(cmd.OutOrStdout(), version)
						return err
					})
			},
		},
	)
	return cmd
}
