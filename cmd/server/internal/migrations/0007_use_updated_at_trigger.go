package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0007, Down0007)
}

var touchedTables = []string{
	"users",
	"contest",
	"contest_permission",
	"contest_participant",
	"problem_statement_config",
	"round",
	"round_time_extension",
	"problem_instance",
	"submission",
	"submission_report",
	"score_report",
	"result_for_problem",
	"result_for_round",
	"result_for_contest",
}

func Up0007(ctx context.Context, tx *sql.Tx) error {
	statements := make([]statement, 0, len(touchedTables))
	for _, table := range touchedTables {
		statements = append(statements, statement{query: fmt.Sprintf(`
CREATE TRIGGER touch_updated_at_trigger
BEFORE UPDATE ON %s
FOR EACH ROW EXECUTE PROCEDURE touch_updated_at();`,
			table)})
	}

	return execStatements(ctx, tx, statements...)
}

func Down0007(ctx context.Context, tx *sql.Tx) error {
	tables := slices.Clone(touchedTables)
	slices.Reverse(tables)

	statements := make([]statement, 0, len(tables))
	for _, table := range tables {
		statements = append(statements, statement{
			query: fmt.Sprintf(`DROP TRIGGER touch_updated_at_trigger ON %s;`, table),
		})
	}

	return execStatements(ctx, tx, statements...)
}
