package transparency

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one immutable, append-only record of a case state transition. The
// checksum is computed over every other field at write time and never
// recomputed or rewritten; it is the tamper-evidence primitive.
type Entry struct {
	ID           uuid.UUID         `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	CaseID       uuid.UUID         `json:"case_id"`
	Action       string            `json:"action"`
	Actor        string            `json:"actor"`
	OldState     string            `json:"old_state"`
	NewState     string            `json:"new_state"`
	ReasonCode   string            `json:"reason_code"`
	Jurisdiction string            `json:"jurisdiction"`
	Priority     string            `json:"priority"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Checksum     string            `json:"checksum"`
}

// AppendRequest carries the fields for one new log entry. ID, timestamp
// normalization, and checksum are filled in by the log service.
type AppendRequest struct {
	Timestamp    time.Time
	CaseID       uuid.UUID
	Action       string
	Actor        string
	OldState     string
	NewState     string
	ReasonCode   string
	Jurisdiction string
	Priority     string
	Metadata     map[string]string
}

// Filter narrows a log query. Zero values mean "no constraint". Results are
// always returned in append order.
type Filter struct {
	CaseID     uuid.UUID
	Action     string
	Actor      string
	ReasonCode string
	From       time.Time
	To         time.Time
	Limit      int
}

// Matches reports whether the entry satisfies every set constraint.
func (f Filter) Matches(e Entry) bool {
	if f.CaseID != uuid.Nil && e.CaseID != f.CaseID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if f.ReasonCode != "" && e.ReasonCode != f.ReasonCode {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}
