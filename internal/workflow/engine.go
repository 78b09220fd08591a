package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	dErrors "takedown/pkg/domain-errors"
	"takedown/pkg/requestcontext"
)

// Engine validates and executes one transition against a case snapshot. It
// performs no I/O and holds no case across calls; each invocation is a pure
// function over the case plus the static table, so it is safe to call
// concurrently as long as each call acts on an exclusively-owned snapshot.
type Engine struct {
	table Table
}

// NewEngine builds an engine over a transition table. A nil table selects the
// default lifecycle.
func NewEngine(table Table) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	return &Engine{table: table}
}

// ExecuteRequest carries the caller context for one transition.
type ExecuteRequest struct {
	Action    Action
	ActorID   string
	ActorRole Role
	Notes     string
	// AssigneeID names the officer taking over the case on reassignment. The
	// engine carries it through; assignment itself is the caller's concern.
	AssigneeID string
	// ReasonOverride replaces the rule's reason code when the rule allows it.
	ReasonOverride ReasonCode
}

// Transition is the value object the engine returns for the caller to persist
// and audit-log.
type Transition struct {
	CaseID     string
	Action     Action
	From       CaseState
	To         CaseState
	Reason     ReasonCode
	ActorID    string
	ActorRole  Role
	Notes      string
	OccurredAt time.Time
}

// CanTransition checks whether the action is allowed for the case in its
// current state by an actor with the given role. The returned string explains
// a false result.
func (e *Engine) CanTransition(c *Case, action Action, role Role) (bool, string) {
	rule, ok := e.table.Lookup(c.State, action)
	if !ok {
		return false, fmt.Sprintf("no transition from %s with action %q", c.State, action)
	}
	if rule.RequiredRole != RoleSystem && role != rule.RequiredRole {
		return false, fmt.Sprintf("role %q not allowed, required role %q", role, rule.RequiredRole)
	}
	if rule.To == c.State {
		return false, fmt.Sprintf("case already in state %s", rule.To)
	}
	return true, "transition allowed"
}

// Execute validates and applies one transition, mutating the case in place.
// Validation order: rule lookup, role check, self-transition check. On success
// the case state, updated-at, SLA deadline, and escalation level are updated
// per the rule, and a Transition describing the change is returned.
func (e *Engine) Execute(ctx context.Context, c *Case, req ExecuteRequest) (*Transition, error) {
	rule, ok := e.table.Lookup(c.State, req.Action)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("no transition from %s with action %q", c.State, req.Action))
	}
	if rule.RequiredRole != RoleSystem && req.ActorRole != rule.RequiredRole {
		return nil, dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("role %q not allowed for %q, required role %q", req.ActorRole, req.Action, rule.RequiredRole))
	}
	if rule.To == c.State {
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("case already in state %s", rule.To))
	}

	reason := rule.Reason
	if req.ReasonOverride != "" {
		if !slices.Contains(rule.AllowedReasons, req.ReasonOverride) {
			return nil, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("reason %q not allowed for action %q", req.ReasonOverride, req.Action))
		}
		reason = req.ReasonOverride
	}

	now := requestcontext.Now(ctx)
	from := c.State

	c.State = rule.To
	c.UpdatedAt = now
	if rule.SLAHours > 0 {
		// The target state's rule owns the SLA clock; any prior deadline is
		// replaced, not extended.
		due := now.Add(time.Duration(rule.SLAHours) * time.Hour)
		c.SLADueAt = &due
	}
	if rule.AutoEscalation {
		c.EscalationLevel++
	}

	return &Transition{
		CaseID:     c.ID.String(),
		Action:     req.Action,
		From:       from,
		To:         rule.To,
		Reason:     reason,
		ActorID:    req.ActorID,
		ActorRole:  req.ActorRole,
		Notes:      req.Notes,
		OccurredAt: now,
	}, nil
}

// AvailableActions returns the actions permitted from the case's current state
// for the given role, sorted for stable output. System rules are listed for
// every role since they surface what the worker may do next.
func (e *Engine) AvailableActions(c *Case, role Role) []Action {
	var actions []Action
	for key, rule := range e.table {
		if key.From != c.State {
			continue
		}
		if rule.RequiredRole == RoleSystem || rule.RequiredRole == role {
			actions = append(actions, key.Action)
		}
	}
	slices.Sort(actions)
	return actions
}

// nearDueWindow is how close to its deadline a case counts as near-due.
const nearDueWindow = 2 * time.Hour

// SLA status values reported by SLAStatus.
const (
	SLANone    = "no_sla"
	SLAOnTime  = "on_time"
	SLANearDue = "near_due"
	SLAOverdue = "overdue"
)

// SLAStatus classifies a case's position relative to its SLA deadline.
func SLAStatus(c *Case, now time.Time) string {
	if c.SLADueAt == nil {
		return SLANone
	}
	remaining := c.SLADueAt.Sub(now)
	switch {
	case remaining <= 0:
		return SLAOverdue
	case remaining <= nearDueWindow:
		return SLANearDue
	default:
		return SLAOnTime
	}
}

// EscalationEligible reports whether the case has breached its review SLA.
// Only cases actively in review with a deadline in the past qualify.
func EscalationEligible(c *Case, now time.Time) bool {
	return c.State == StateInReview && c.SLADueAt != nil && now.After(*c.SLADueAt)
}

// WarningEligible reports whether the case is approaching its review SLA:
// still in review, deadline in the future, and due within threshold.
func WarningEligible(c *Case, now time.Time, threshold time.Duration) bool {
	if c.State != StateInReview || c.SLADueAt == nil {
		return false
	}
	remaining := c.SLADueAt.Sub(now)
	return remaining > 0 && remaining <= threshold
}
