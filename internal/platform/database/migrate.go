package database

import (
	"context"
	"fmt"
)

// schema creates the tables used by the Postgres host, registrations and
// analytics events. Statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS registrations (
  id          TEXT PRIMARY KEY,
  learner_id  TEXT NOT NULL,
  course_id   TEXT NOT NULL,
  started_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  ended_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS registrations_active_idx
  ON registrations (learner_id, course_id) WHERE ended_at IS NULL;

CREATE TABLE IF NOT EXISTS cmi_values (
  registration_id TEXT NOT NULL,
  element         TEXT NOT NULL,
  value           TEXT NOT NULL,
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (registration_id, element)
);

CREATE TABLE IF NOT EXISTS course_events (
  id              BIGSERIAL PRIMARY KEY,
  registration_id TEXT,
  learner_hash    TEXT,
  course_id       TEXT NOT NULL,
  event_type      TEXT NOT NULL,
  data            JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS course_events_course_idx ON course_events (course_id, created_at);
`

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
