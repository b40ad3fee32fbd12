package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0006, Down0006)
}

func Up0006(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE result_for_problem (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  problem_instance_id UUID NOT NULL REFERENCES problem_instance (id) ON DELETE CASCADE,
  score TEXT,
  status TEXT NOT NULL DEFAULT '?',
  submission_report_id UUID REFERENCES submission_report (id) ON DELETE SET NULL,
  UNIQUE (user_id, problem_instance_id)
);`},
		statement{query: `
CREATE TABLE result_for_round (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  round_id UUID NOT NULL REFERENCES round (id) ON DELETE CASCADE,
  score TEXT,
  UNIQUE (user_id, round_id)
);`},
		statement{query: `
CREATE TABLE result_for_contest (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  contest_id UUID NOT NULL REFERENCES contest (id) ON DELETE CASCADE,
  score TEXT,
  UNIQUE (user_id, contest_id)
);`},
		statement{query: `CREATE INDEX result_for_contest_ranking_idx ON result_for_contest (contest_id, score DESC);`},
	)
}

func Down0006(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE result_for_contest;`},
		statement{query: `DROP TABLE result_for_round;`},
		statement{query: `DROP TABLE result_for_problem;`},
	)
}
