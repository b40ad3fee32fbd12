// Package database opens the engine's postgres connection
package database

import (
	"context"
	"fmt"
	"log/slog"

	sloggorm "github.com/orandin/slog-gorm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"

	"github.com/j4b6ski/oioioi/internal/config"
	"github.com/j4b6ski/oioioi/internal/logger"
)

var tracer = otel.Tracer("github.com/j4b6ski/oioioi/cmd/server/internal/database")

// Open connects to postgres with the configured pool and tracing. It does not migrate.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	_, span := tracer.Start(ctx, "Open")
	defer span.End()

	gormLogger := slog.New(logger.Handler)

	opts := []sloggorm.Option{
		sloggorm.WithHandler(gormLogger.Handler()),
		sloggorm.SetLogLevel(sloggorm.DefaultLogType, slog.Level(cfg.Logging.Gorm.Level)),
	}
	if cfg.Logging.Gorm.TraceQueries {
		opts = append(opts, sloggorm.WithTraceAll())
	}

	span.AddEvent("initialized gorm logging")

	db, err := gorm.Open(
		postgres.Open(cfg.PostgresDSN()),
		&gorm.Config{Logger: sloggorm.New(opts...), TranslateError: true},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire underlying database connection")
		return nil, fmt.Errorf("failed to acquire underlying database connection: %w", err)
	}

	// Configure db connection pool
	sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(cfg.Postgres.ConnectionTTL)

	span.AddEvent("initialized database connection")

	err = db.Use(gormtracing.NewPlugin())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to add otel plugin to gorm")
		return nil, fmt.Errorf("failed to add otel plugin to gorm: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "opened database")
	return db, nil
}
