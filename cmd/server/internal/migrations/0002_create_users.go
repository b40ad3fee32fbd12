package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0002, Down0002)
}

func Up0002(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE users (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  name TEXT NOT NULL,
  token TEXT NOT NULL,
  superuser BOOLEAN NOT NULL DEFAULT false,
  active BOOLEAN
);`},
	)
}

func Down0002(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx, statement{query: `DROP TABLE users;`})
}
