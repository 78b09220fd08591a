package handler

import (
	"time"

	"takedown/internal/workflow"
)

// CaseResponse is the wire shape of a case.
type CaseResponse struct {
	ID                string     `json:"id"`
	Reference         string     `json:"reference"`
	State             string     `json:"state"`
	Priority          string     `json:"priority"`
	Jurisdiction      string     `json:"jurisdiction"`
	SubmitterID       string     `json:"submitter_id"`
	AssignedOfficerID string     `json:"assigned_officer_id,omitempty"`
	EscalationLevel   int        `json:"escalation_level"`
	SLADueAt          *time.Time `json:"sla_due_at,omitempty"`
	SLAStatus         string     `json:"sla_status"`
	Version           int64      `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toCaseResponse(c *workflow.Case, now time.Time) CaseResponse {
	return CaseResponse{
		ID:                c.ID.String(),
		Reference:         c.Reference,
		State:             string(c.State),
		Priority:          string(c.Priority),
		Jurisdiction:      c.Jurisdiction,
		SubmitterID:       c.SubmitterID,
		AssignedOfficerID: c.AssignedOfficerID,
		EscalationLevel:   c.EscalationLevel,
		SLADueAt:          c.SLADueAt,
		SLAStatus:         workflow.SLAStatus(c, now),
		Version:           c.Version,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// ActionResultResponse reports an executed transition.
type ActionResultResponse struct {
	Case       CaseResponse `json:"case"`
	Action     string       `json:"action"`
	From       string       `json:"from"`
	To         string       `json:"to"`
	Reason     string       `json:"reason"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// AvailableActionsResponse lists what the caller may do next.
type AvailableActionsResponse struct {
	Actions []string `json:"actions"`
}
