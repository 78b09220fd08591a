package handler

// SubmitCaseRequest is the payload for reporting content.
type SubmitCaseRequest struct {
	Priority     string `json:"priority"`
	Jurisdiction string `json:"jurisdiction"`
}

// CaseActionRequest is the payload for executing a lifecycle action.
type CaseActionRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
	// AssigneeID names the target officer on reassignment.
	AssigneeID string `json:"assignee_id,omitempty"`
	// Reason optionally overrides the rule's default reason code where the
	// rule allows it (e.g. rejection reasons).
	Reason string `json:"reason,omitempty"`
}
