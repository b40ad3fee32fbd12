package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0005, Down0005)
}

func Up0005(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE problem_instance (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  contest_id UUID NOT NULL REFERENCES contest (id) ON DELETE CASCADE,
  round_id UUID REFERENCES round (id) ON DELETE SET NULL,
  short_name TEXT NOT NULL,
  submissions_limit INTEGER NOT NULL DEFAULT 0 CHECK (submissions_limit >= 0),
  score_weight DOUBLE PRECISION NOT NULL DEFAULT 1,
  UNIQUE (contest_id, short_name)
);`},
		statement{query: `
CREATE TABLE submission (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  problem_instance_id UUID NOT NULL REFERENCES problem_instance (id) ON DELETE CASCADE,
  user_id UUID REFERENCES users (id) ON DELETE SET NULL,
  date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  kind TEXT NOT NULL DEFAULT 'NORMAL'
    CHECK (kind IN ('NORMAL', 'IGNORED', 'SUSPECTED', 'IGNORED_HIDDEN')),
  status TEXT NOT NULL DEFAULT '?',
  score TEXT,
  comment TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  needs_rejudge BOOLEAN NOT NULL DEFAULT false,
  auto_rejudges INTEGER NOT NULL DEFAULT 0
);`},
		statement{query: `CREATE INDEX submission_owner_idx ON submission (problem_instance_id, user_id, kind);`},
		statement{query: `
CREATE TABLE submission_report (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  submission_id UUID NOT NULL REFERENCES submission (id) ON DELETE CASCADE,
  kind TEXT NOT NULL DEFAULT 'NORMAL' CHECK (kind IN ('NORMAL', 'FAILURE', 'INITIAL')),
  status TEXT NOT NULL DEFAULT 'INACTIVE'
    CHECK (status IN ('INACTIVE', 'ACTIVE', 'SUPERSEDED'))
);`},
		statement{query: `CREATE INDEX submission_report_status_idx ON submission_report (submission_id, status);`},
		statement{query: `
CREATE TABLE score_report (
  id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
  submission_report_id UUID NOT NULL UNIQUE REFERENCES submission_report (id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  score TEXT,
  max_score TEXT,
  comment TEXT NOT NULL DEFAULT ''
);`},
	)
}

func Down0005(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE score_report;`},
		statement{query: `DROP TABLE submission_report;`},
		statement{query: `DROP TABLE submission;`},
		statement{query: `DROP TABLE problem_instance;`},
	)
}
