package cases

import (
	"context"

	"github.com/google/uuid"

	"takedown/internal/workflow"
)

// Store is the case repository boundary. Implementations must provide per-case
// optimistic concurrency: Save compares the persisted version against
// expectedVersion and rejects mismatches with sentinel.ErrConflict, forcing
// the caller to re-fetch and re-decide instead of blindly retrying.
type Store interface {
	Create(ctx context.Context, c *workflow.Case) error
	// Fetch returns a snapshot of the case; sentinel.ErrNotFound when absent.
	Fetch(ctx context.Context, id uuid.UUID) (*workflow.Case, error)
	// FetchByStates returns cases in any of the given states, ordered by SLA
	// due date ascending (earliest-due first). With requireSLADeadline set,
	// cases without a deadline are excluded.
	FetchByStates(ctx context.Context, states []workflow.CaseState, requireSLADeadline bool) ([]*workflow.Case, error)
	// Save persists the case if the stored version equals expectedVersion,
	// bumping the version; sentinel.ErrConflict otherwise.
	Save(ctx context.Context, c *workflow.Case, expectedVersion int64) error
}

// TxRunner brackets a case-state write and its transparency-log append into
// one committed unit: both succeed or both roll back, because an audit entry
// without the corresponding state change breaks the transparency guarantee.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
