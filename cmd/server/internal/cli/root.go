// Package cli holds the command line of the engine binary. Without a
// subcommand it serves the http api.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/database"
	"github.com/j4b6ski/oioioi/internal/config"
	"github.com/j4b6ski/oioioi/internal/logger"
	otelengine "github.com/j4b6ski/oioioi/internal/otel"
)

var tracer = otel.Tracer("github.com/j4b6ski/oioioi/cmd/server/internal/cli")

// Serve runs the api until ctx is done
type Serve func(ctx context.Context) error

func New(serve Serve) *cobra.Command {
	root := &cobra.Command{
		Use:           "contestengine",
		Short:         "Contest rule engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(
		newMigrateCmd(),
		newRecomputeCmd(),
		newPoliciesCmd(),
	)
	return root
}

func Execute(ctx context.Context, serve Serve) error {
	return New(serve).ExecuteContext(ctx)
}

// withDB runs an administrative operation against the configured database
func withDB(
	ctx context.Context,
	operation string,
	fn func(ctx context.Context, cfg *config.Config, db *gorm.DB) error,
) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.LogLevel.Set(slog.Level(cfg.Logging.App.Level))

	shutdown, err := otelengine.SetupOTelSDK(ctx, cfg.Logging.UseOTLP, "engine")
	if err != nil {
		logger.Logger.Warn("failed to setup otel sdk", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(
				context.WithoutCancel(ctx),
				time.Second*time.Duration(max(cfg.GracefulShutdownSecs, 1)),
			)
			defer cancel()

			if err := shutdown(shutdownCtx); err != nil {
				logger.Logger.Warn("no clean shutdown for otel", "error", err)
			}
		}()
	}

	ctx, span := tracer.Start(ctx, operation)
	defer span.End()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open database")
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := fn(ctx, cfg, db); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("%s failed", operation))
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, fmt.Sprintf("%s done", operation))
	return nil
}
