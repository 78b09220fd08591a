package workflow

import "fmt"

// Rule is an immutable transition rule keyed by (from state, action). SLAHours
// of zero means the transition does not touch the SLA clock; a positive value
// replaces any prior deadline, because the rule governing the target state
// owns the SLA clock.
type Rule struct {
	From           CaseState
	Action         Action
	To             CaseState
	RequiredRole   Role
	Reason         ReasonCode
	SLAHours       int
	AutoEscalation bool
	// AllowedReasons lists caller-suppliable reason codes that may replace
	// Reason, e.g. the distinct rejection reasons. Empty means the rule's
	// reason is mandatory.
	AllowedReasons []ReasonCode
	Description    string
}

// Key identifies a rule in the transition table.
type Key struct {
	From   CaseState
	Action Action
}

// Table is the static dispatch table from (state, action) to rule. It is fixed
// at construction and never mutated at runtime.
type Table map[Key]Rule

// NewTable builds a table from rules, rejecting duplicate (from, action) pairs
// and rules that target their own source state.
func NewTable(rules ...Rule) (Table, error) {
	t := make(Table, len(rules))
	for _, r := range rules {
		k := Key{From: r.From, Action: r.Action}
		if _, exists := t[k]; exists {
			return nil, fmt.Errorf("duplicate transition rule for (%s, %s)", r.From, r.Action)
		}
		if r.From == r.To {
			return nil, fmt.Errorf("self-transition rule for (%s, %s)", r.From, r.Action)
		}
		if r.From.Terminal() {
			return nil, fmt.Errorf("rule (%s, %s) leaves a terminal state", r.From, r.Action)
		}
		t[k] = r
	}
	return t, nil
}

// Lookup returns the rule for (from, action), if any.
func (t Table) Lookup(from CaseState, action Action) (Rule, bool) {
	r, ok := t[Key{From: from, Action: action}]
	return r, ok
}

// DefaultTable returns the takedown case lifecycle. Reviews get a 48h SLA;
// reassignment after escalation gets a tighter 24h SLA.
func DefaultTable() Table {
	t, err := NewTable(
		Rule{
			From:         StateSubmitted,
			Action:       ActionStartReview,
			To:           StateInReview,
			RequiredRole: RoleOfficer,
			Reason:       ReasonOfficerAssignment,
			SLAHours:     48,
			Description:  "Officer starts reviewing the case",
		},
		Rule{
			From:         StateInReview,
			Action:       ActionApprove,
			To:           StateApproved,
			RequiredRole: RoleOfficer,
			Reason:       ReasonContentVerifiedHarmful,
			Description:  "Officer approves the takedown after verification",
		},
		Rule{
			From:         StateInReview,
			Action:       ActionReject,
			To:           StateRejected,
			RequiredRole: RoleOfficer,
			Reason:       ReasonContentVerifiedSafe,
			AllowedReasons: []ReasonCode{
				ReasonContentVerifiedSafe,
				ReasonInsufficientEvidence,
				ReasonFalseReport,
				ReasonJurisdictionIssue,
			},
			Description: "Officer rejects the case",
		},
		Rule{
			From:           StateInReview,
			Action:         ActionEscalate,
			To:             StateEscalated,
			RequiredRole:   RoleSystem,
			Reason:         ReasonSLAViolation,
			AutoEscalation: true,
			Description:    "Case escalated for breaching its SLA deadline",
		},
		Rule{
			From:         StateEscalated,
			Action:       ActionReassign,
			To:           StateInReview,
			RequiredRole: RoleAdmin,
			Reason:       ReasonManualEscalation,
			SLAHours:     24,
			Description:  "Escalated case reassigned to an officer",
		},
		Rule{
			From:         StateApproved,
			Action:       ActionClose,
			To:           StateClosed,
			RequiredRole: RoleOfficer,
			Reason:       ReasonCaseClosed,
			Description:  "Case closed after successful resolution",
		},
		Rule{
			From:         StateRejected,
			Action:       ActionClose,
			To:           StateClosed,
			RequiredRole: RoleOfficer,
			Reason:       ReasonCaseClosed,
			Description:  "Case closed after rejection",
		},
	)
	if err != nil {
		// The default table is static; a bad rule is a programming error.
		panic(err)
	}
	return t
}
