package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"takedown/internal/platform/config"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(cfg config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// schema is applied idempotently on startup. The transparency_log table gets
// no UPDATE or DELETE from application code; seq preserves append order
// independently of entry timestamps.
const schema = `
CREATE TABLE IF NOT EXISTS cases (
	id UUID PRIMARY KEY,
	reference TEXT NOT NULL UNIQUE,
	state TEXT NOT NULL,
	priority TEXT NOT NULL,
	jurisdiction TEXT NOT NULL,
	submitter_id TEXT NOT NULL,
	assigned_officer_id TEXT,
	escalation_level INT NOT NULL DEFAULT 0,
	sla_due_at TIMESTAMPTZ,
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cases_state_sla ON cases (state, sla_due_at);

CREATE TABLE IF NOT EXISTS transparency_log (
	seq BIGSERIAL PRIMARY KEY,
	id UUID NOT NULL UNIQUE,
	timestamp TIMESTAMPTZ NOT NULL,
	case_id UUID NOT NULL,
	action TEXT NOT NULL,
	actor TEXT NOT NULL,
	old_state TEXT NOT NULL,
	new_state TEXT NOT NULL,
	reason_code TEXT NOT NULL,
	jurisdiction TEXT NOT NULL,
	priority TEXT NOT NULL,
	metadata JSONB,
	checksum TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transparency_case ON transparency_log (case_id, seq);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
