package postgres

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "takedown/pkg/platform/tx"
)

// TxRunner runs a function inside one database transaction. The transaction is
// placed in the context so the case and transparency stores pick it up through
// their execers and commit together.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner builds a transaction runner over the database handle.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
