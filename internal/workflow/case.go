package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Case is the mutable aggregate the engine transitions. The engine owns a case
// exclusively for the duration of one transition; the repository owns it
// between transitions and enforces per-case mutual exclusion via Version.
type Case struct {
	ID                uuid.UUID
	Reference         string
	State             CaseState
	Priority          Priority
	Jurisdiction      string
	SubmitterID       string
	AssignedOfficerID string // empty when unassigned
	EscalationLevel   int
	SLADueAt          *time.Time
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewCase creates a case in the Submitted state. Cases are never physically
// deleted; Closed is a soft-terminal marker preserved for audit.
func NewCase(id uuid.UUID, reference string, priority Priority, jurisdiction, submitterID string, now time.Time) *Case {
	return &Case{
		ID:           id,
		Reference:    reference,
		State:        StateSubmitted,
		Priority:     priority,
		Jurisdiction: jurisdiction,
		SubmitterID:  submitterID,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy so stores can hand out snapshots without sharing
// mutable state with callers.
func (c *Case) Clone() *Case {
	cp := *c
	if c.SLADueAt != nil {
		due := *c.SLADueAt
		cp.SLADueAt = &due
	}
	return &cp
}
