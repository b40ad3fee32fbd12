package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0004, Down0004)
}

func Up0004(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE round (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  contest_id UUID NOT NULL REFERENCES contest (id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  start_date TIMESTAMP WITH TIME ZONE NOT NULL,
  end_date TIMESTAMP WITH TIME ZONE,
  results_date TIMESTAMP WITH TIME ZONE,
  public_results_date TIMESTAMP WITH TIME ZONE,
  can_submit_after_end BOOLEAN NOT NULL DEFAULT false,
  is_trial BOOLEAN NOT NULL DEFAULT false,
  UNIQUE (contest_id, name),
  CHECK (end_date IS NULL OR start_date <= end_date),
  CHECK (
    public_results_date IS NULL
    OR (results_date IS NOT NULL AND results_date <= public_results_date)
  )
);`},
		statement{query: `CREATE INDEX round_contest_start_idx ON round (contest_id, start_date);`},
		statement{query: `
CREATE TABLE round_time_extension (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  round_id UUID NOT NULL REFERENCES round (id) ON DELETE CASCADE,
  extra_time INTEGER NOT NULL DEFAULT 0 CHECK (extra_time >= 0),
  UNIQUE (user_id, round_id)
);`},
	)
}

func Down0004(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE round_time_extension;`},
		statement{query: `DROP TABLE round;`},
	)
}
