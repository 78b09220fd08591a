package transparency

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "takedown/pkg/platform/tx"
)

// PostgresStore persists transparency entries in PostgreSQL. The table is
// append-only from this store's perspective: only INSERT and SELECT are ever
// issued, and the seq column preserves insertion order independently of
// timestamps.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed transparency store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer returns the context transaction when one is active so an append
// commits atomically with the case-state write it records.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	metadata, err := json.Marshal(metadataOrEmpty(entry.Metadata))
	if err != nil {
		return fmt.Errorf("marshal entry metadata: %w", err)
	}

	query := `
		INSERT INTO transparency_log (
			id, timestamp, case_id, action, actor, old_state, new_state,
			reason_code, jurisdiction, priority, metadata, checksum
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.CaseID,
		entry.Action,
		entry.Actor,
		entry.OldState,
		entry.NewState,
		entry.ReasonCode,
		entry.Jurisdiction,
		entry.Priority,
		metadata,
		entry.Checksum,
	)
	if err != nil {
		return fmt.Errorf("insert transparency entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, timestamp, case_id, action, actor, old_state, new_state,
		       reason_code, jurisdiction, priority, metadata, checksum
		FROM transparency_log
		WHERE ($1::uuid IS NULL OR case_id = $1)
		  AND ($2 = '' OR action = $2)
		  AND ($3 = '' OR actor = $3)
		  AND ($4 = '' OR reason_code = $4)
		  AND ($5::timestamptz IS NULL OR timestamp >= $5)
		  AND ($6::timestamptz IS NULL OR timestamp <= $6)
		ORDER BY seq ASC
	`
	args := []any{
		nullableUUID(filter.CaseID),
		filter.Action,
		filter.Actor,
		filter.ReasonCode,
		nullableTime(filter.From),
		nullableTime(filter.To),
	}
	if filter.Limit > 0 {
		query += " LIMIT $7"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transparency entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			metadata []byte
		)
		err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.CaseID,
			&e.Action,
			&e.Actor,
			&e.OldState,
			&e.NewState,
			&e.ReasonCode,
			&e.Jurisdiction,
			&e.Priority,
			&metadata,
			&e.Checksum,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transparency entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal entry metadata: %w", err)
			}
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transparency entries: %w", err)
	}
	return entries, nil
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
