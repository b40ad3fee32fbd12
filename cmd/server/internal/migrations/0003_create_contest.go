package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0003, Down0003)
}

func Up0003(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE contest (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  name TEXT NOT NULL,
  policy_name TEXT NOT NULL DEFAULT 'default',
  judging_priority INTEGER NOT NULL DEFAULT 10,
  judging_weight INTEGER NOT NULL DEFAULT 1 CHECK (judging_weight >= 1),
  contact_email TEXT,
  default_submissions_limit INTEGER NOT NULL DEFAULT 0 CHECK (default_submissions_limit >= 0)
);`},
		statement{query: `
CREATE TABLE contest_permission (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  contest_id UUID NOT NULL REFERENCES contest (id) ON DELETE CASCADE,
  permission TEXT NOT NULL CHECK (permission IN ('admin', 'observer')),
  UNIQUE (user_id, contest_id, permission)
);`},
		statement{query: `
CREATE TABLE contest_participant (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  contest_id UUID NOT NULL REFERENCES contest (id) ON DELETE CASCADE,
  UNIQUE (user_id, contest_id)
);`},
		statement{query: `
CREATE TABLE problem_statement_config (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  contest_id UUID NOT NULL UNIQUE REFERENCES contest (id) ON DELETE CASCADE,
  visible TEXT NOT NULL DEFAULT 'AUTO' CHECK (visible IN ('YES', 'NO', 'AUTO'))
);`},
	)
}

func Down0003(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE problem_statement_config;`},
		statement{query: `DROP TABLE contest_participant;`},
		statement{query: `DROP TABLE contest_permission;`},
		statement{query: `DROP TABLE contest;`},
	)
}
