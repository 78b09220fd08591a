package workflow

// CaseState is the closed set of lifecycle states a takedown case moves
// through. Submitted is the only initial state; Closed is terminal and has no
// outgoing transitions.
type CaseState string

const (
	StateSubmitted CaseState = "submitted"
	StateInReview  CaseState = "in_review"
	StateApproved  CaseState = "approved"
	StateRejected  CaseState = "rejected"
	StateEscalated CaseState = "escalated"
	StateClosed    CaseState = "closed"
)

// Valid reports whether s is a known case state.
func (s CaseState) Valid() bool {
	switch s {
	case StateSubmitted, StateInReview, StateApproved, StateRejected, StateEscalated, StateClosed:
		return true
	}
	return false
}

// Terminal reports whether the state has no outgoing transitions.
func (s CaseState) Terminal() bool { return s == StateClosed }

// Priority classifies how urgent a case is. It drives reporting and triage
// ordering; SLA deadlines come from transition rules, not from priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Action names a caller-requested operation on a case. The transition table
// maps (state, action) pairs to rules.
type Action string

const (
	ActionStartReview Action = "start_review"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionEscalate    Action = "escalate"
	ActionReassign    Action = "reassign"
	ActionClose       Action = "close"
)

// Role is the actor role required to execute a transition. RoleSystem marks
// transitions only the SLA worker may drive; rules requiring it accept any
// caller claiming the system role and no human role.
type Role string

const (
	RoleVictim  Role = "victim"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
	RoleSystem  Role = "system"
)

// ReasonCode is the closed taxonomy tagging why a transition happened. Every
// transition carries exactly one, inherited from its rule unless the rule
// allows a caller-supplied override (e.g. rejection reasons).
type ReasonCode string

const (
	// Submission
	ReasonInitialSubmission ReasonCode = "initial_submission"
	ReasonDuplicateDetected ReasonCode = "duplicate_detected"

	// Review
	ReasonOfficerAssignment ReasonCode = "officer_assignment"
	ReasonReviewCompleted   ReasonCode = "review_completed"

	// Approval / rejection
	ReasonContentVerifiedHarmful ReasonCode = "content_verified_harmful"
	ReasonContentVerifiedSafe    ReasonCode = "content_verified_safe"
	ReasonInsufficientEvidence   ReasonCode = "insufficient_evidence"
	ReasonFalseReport            ReasonCode = "false_report"
	ReasonJurisdictionIssue      ReasonCode = "jurisdiction_issue"

	// SLA management
	ReasonSLAViolation     ReasonCode = "sla_violation"
	ReasonManualEscalation ReasonCode = "manual_escalation"

	// Closure
	ReasonCaseClosed ReasonCode = "case_closed"
)
