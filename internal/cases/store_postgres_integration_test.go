//go:build integration

package cases_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takedown/internal/cases"
	"takedown/internal/platform/postgres"
	"takedown/internal/transparency"
	"takedown/internal/workflow"
	"takedown/pkg/platform/sentinel"
	"takedown/pkg/testutil/containers"
)

func TestPostgresCaseStore(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	defer pg.Terminate(ctx)

	require.NoError(t, postgres.EnsureSchema(ctx, pg.DB))
	store := cases.NewPostgres(pg.DB)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c := workflow.NewCase(uuid.New(), "TD-2025-ITEST01", workflow.PriorityHigh, "IN", "victim-1", now)
	require.NoError(t, store.Create(ctx, c))

	t.Run("fetch round trip", func(t *testing.T) {
		got, err := store.Fetch(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.Reference, got.Reference)
		assert.Equal(t, workflow.StateSubmitted, got.State)
		assert.Equal(t, int64(1), got.Version)
		assert.Empty(t, got.AssignedOfficerID)
		assert.Nil(t, got.SLADueAt)
	})

	t.Run("fetch unknown", func(t *testing.T) {
		_, err := store.Fetch(ctx, uuid.New())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("save bumps version", func(t *testing.T) {
		due := now.Add(48 * time.Hour)
		c.State = workflow.StateInReview
		c.AssignedOfficerID = "officer-1"
		c.SLADueAt = &due
		c.UpdatedAt = now.Add(time.Hour)
		require.NoError(t, store.Save(ctx, c, 1))
		assert.Equal(t, int64(2), c.Version)

		got, err := store.Fetch(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.StateInReview, got.State)
		assert.Equal(t, "officer-1", got.AssignedOfficerID)
		require.NotNil(t, got.SLADueAt)
		assert.True(t, got.SLADueAt.Equal(due))
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		stale := c.Clone()
		err := store.Save(ctx, stale, 1)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("fetch by states orders by deadline", func(t *testing.T) {
		lateDue := now.Add(72 * time.Hour)
		late := workflow.NewCase(uuid.New(), "TD-2025-ITEST02", workflow.PriorityLow, "IN", "victim-2", now)
		late.State = workflow.StateEscalated
		late.SLADueAt = &lateDue
		require.NoError(t, store.Create(ctx, late))

		noDue := workflow.NewCase(uuid.New(), "TD-2025-ITEST03", workflow.PriorityLow, "IN", "victim-3", now)
		require.NoError(t, store.Create(ctx, noDue))

		got, err := store.FetchByStates(ctx,
			[]workflow.CaseState{workflow.StateInReview, workflow.StateEscalated}, true)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, c.ID, got[0].ID)
		assert.Equal(t, late.ID, got[1].ID)
	})
}

func TestPostgresTxRunnerAtomicity(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	defer pg.Terminate(ctx)

	require.NoError(t, postgres.EnsureSchema(ctx, pg.DB))
	caseStore := cases.NewPostgres(pg.DB)
	logStore := transparency.NewPostgres(pg.DB)
	runner := postgres.NewTxRunner(pg.DB)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c := workflow.NewCase(uuid.New(), "TD-2025-ITEST10", workflow.PriorityHigh, "IN", "victim-1", now)
	require.NoError(t, caseStore.Create(ctx, c))

	// A conflicting save rolls back the already-written transparency entry.
	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		entry := transparency.Entry{
			ID: uuid.New(), Timestamp: now, CaseID: c.ID,
			Action: "start_review", Actor: "officer-1",
			OldState: "submitted", NewState: "in_review",
			ReasonCode: "officer_assignment", Jurisdiction: "IN",
			Priority: "high", Checksum: "deadbeef",
		}
		if err := logStore.Append(txCtx, entry); err != nil {
			return err
		}
		stale := c.Clone()
		return caseStore.Save(txCtx, stale, 99)
	})
	require.ErrorIs(t, err, sentinel.ErrConflict)

	entries, err := logStore.List(ctx, transparency.Filter{CaseID: c.ID})
	require.NoError(t, err)
	assert.Empty(t, entries, "entry must roll back with the failed case write")

	// The happy path commits both writes.
	err = runner.RunInTx(ctx, func(txCtx context.Context) error {
		entry := transparency.Entry{
			ID: uuid.New(), Timestamp: now, CaseID: c.ID,
			Action: "start_review", Actor: "officer-1",
			OldState: "submitted", NewState: "in_review",
			ReasonCode: "officer_assignment", Jurisdiction: "IN",
			Priority: "high", Checksum: "deadbeef",
		}
		if err := logStore.Append(txCtx, entry); err != nil {
			return err
		}
		c.State = workflow.StateInReview
		return caseStore.Save(txCtx, c, 1)
	})
	require.NoError(t, err)

	entries, err = logStore.List(ctx, transparency.Filter{CaseID: c.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	got, err := caseStore.Fetch(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateInReview, got.State)
	assert.Equal(t, int64(2), got.Version)
}
