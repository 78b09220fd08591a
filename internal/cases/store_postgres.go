package cases

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"takedown/internal/workflow"
	"takedown/pkg/platform/sentinel"
	txcontext "takedown/pkg/platform/tx"
)

// PostgresStore persists cases in PostgreSQL. Optimistic concurrency is
// enforced in SQL: updates carry the expected version in the WHERE clause and
// a zero row count is reported as sentinel.ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed case store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const caseColumns = `id, reference, state, priority, jurisdiction, submitter_id,
	assigned_officer_id, escalation_level, sla_due_at, version, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *workflow.Case) error {
	query := `
		INSERT INTO cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		c.ID,
		c.Reference,
		string(c.State),
		string(c.Priority),
		c.Jurisdiction,
		c.SubmitterID,
		nullableString(c.AssignedOfficerID),
		c.EscalationLevel,
		c.SLADueAt,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *PostgresStore) Fetch(ctx context.Context, id uuid.UUID) (*workflow.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	c, err := scanCase(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("fetch case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FetchByStates(ctx context.Context, states []workflow.CaseState, requireSLADeadline bool) ([]*workflow.Case, error) {
	stateValues := make([]string, len(states))
	for i, st := range states {
		stateValues[i] = string(st)
	}

	query := `
		SELECT ` + caseColumns + `
		FROM cases
		WHERE state = ANY($1)
		  AND ($2 = false OR sla_due_at IS NOT NULL)
		ORDER BY sla_due_at ASC NULLS LAST
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(stateValues), requireSLADeadline)
	if err != nil {
		return nil, fmt.Errorf("query cases by state: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, c *workflow.Case, expectedVersion int64) error {
	query := `
		UPDATE cases
		SET state = $1,
		    priority = $2,
		    assigned_officer_id = $3,
		    escalation_level = $4,
		    sla_due_at = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE id = $7 AND version = $8
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		string(c.State),
		string(c.Priority),
		nullableString(c.AssignedOfficerID),
		c.EscalationLevel,
		c.SLADueAt,
		c.UpdatedAt,
		c.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows affected: %w", err)
	}
	if affected == 0 {
		// Either the case vanished or someone else won the version race.
		// Distinguish so callers get the right sentinel.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check case existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	c.Version = expectedVersion + 1
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*workflow.Case, error) {
	var (
		c       workflow.Case
		state   string
		prio    string
		officer sql.NullString
		due     sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.Reference,
		&state,
		&prio,
		&c.Jurisdiction,
		&c.SubmitterID,
		&officer,
		&c.EscalationLevel,
		&due,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.State = workflow.CaseState(state)
	c.Priority = workflow.Priority(prio)
	if officer.Valid {
		c.AssignedOfficerID = officer.String
	}
	if due.Valid {
		utc := due.Time.UTC()
		c.SLADueAt = &utc
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
