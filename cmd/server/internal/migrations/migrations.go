package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer(
	"github.com/j4b6ski/oioioi/cmd/server/internal/migrations",
)

func Up(ctx context.Context, db *gorm.DB) error {
	ctx, span := tracer.Start(ctx, "Up")
	defer span.End()

	rawDB, err := db.DB()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to bring migrations up")
		return err
	}

	err = goose.UpContext(ctx, rawDB, ".")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to bring migrations up")
		return err
	}

	span.AddEvent("migrated_up")

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "brought migrations up")
	return nil
}

func Down(ctx context.Context, db *gorm.DB) error {
	ctx, span := tracer.Start(ctx, "Down")
	defer span.End()

	rawDB, err := db.DB()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to bring migrations down")
		return err
	}

	err = goose.DownToContext(ctx, rawDB, ".", 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to bring migrations down")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "brought migrations down")
	return nil
}

// Version reports the newest applied migration.
func Version(ctx context.Context, db *gorm.DB) (int64, error) {
	rawDB, err := db.DB()
	if err != nil {
		return 0, err
	}

	return goose.GetDBVersionContext(ctx, rawDB)
}

type statement struct {
	query string
	args  []any
}

func execStatements(ctx context.Context, tx *sql.Tx, statements ...statement) error {
	for _, statement := range statements {
		_, err := tx.ExecContext(ctx, statement.query, statement.args...)
		if err != nil {
			return fmt.Errorf("failed to run migration statement: %w", err)
		}
	}

	return nil
}
