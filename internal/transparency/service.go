package transparency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"takedown/internal/transparency/metrics"
	dErrors "takedown/pkg/domain-errors"
)

// Log is the tamper-evident audit log service. Every case transition is
// appended exactly once; entries are immutable and verification is
// entry-local (no forward chaining of digests).
type Log struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Log.
type Option func(*Log)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Log) { l.metrics = m }
}

// NewLog builds the transparency log service over an append-only store.
func NewLog(store Store, logger *slog.Logger, opts ...Option) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Log{store: store, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append computes the entry checksum, writes the full entry as one record,
// and returns the checksum as a receipt.
func (l *Log) Append(ctx context.Context, req AppendRequest) (string, error) {
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := Entry{
		ID:           uuid.New(),
		Timestamp:    ts.UTC(),
		CaseID:       req.CaseID,
		Action:       req.Action,
		Actor:        req.Actor,
		OldState:     req.OldState,
		NewState:     req.NewState,
		ReasonCode:   req.ReasonCode,
		Jurisdiction: req.Jurisdiction,
		Priority:     req.Priority,
		Metadata:     req.Metadata,
	}

	checksum, err := computeChecksum(entry)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "compute entry checksum")
	}
	entry.Checksum = checksum

	if err := l.store.Append(ctx, entry); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "append transparency entry")
	}

	if l.metrics != nil {
		l.metrics.AppendsTotal.Inc()
	}
	l.logger.InfoContext(ctx, "transparency entry appended",
		"case_id", entry.CaseID,
		"action", entry.Action,
		"old_state", entry.OldState,
		"new_state", entry.NewState,
		"reason_code", entry.ReasonCode,
	)
	return checksum, nil
}

// VerifyEntry recomputes the digest from the stored fields and compares it to
// the stored checksum. A mismatch means the entry content was mutated after
// write (or corrupted); it is reported, never auto-corrected.
func (l *Log) VerifyEntry(e Entry) error {
	expected, err := computeChecksum(e)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "compute entry checksum")
	}
	if e.Checksum != expected {
		return dErrors.New(dErrors.CodeIntegrityViolation,
			fmt.Sprintf("checksum mismatch for entry %s (case %s)", e.ID, e.CaseID))
	}
	return nil
}

// Issue describes one entry that failed verification.
type Issue struct {
	Index  int       `json:"index"`
	Entry  uuid.UUID `json:"entry_id"`
	CaseID uuid.UUID `json:"case_id"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
}

// VerifyReport summarizes a log-wide verification pass. A non-empty issue list
// is a warning signal, not a halt: the trail stays inspectable even when
// partially compromised.
type VerifyReport struct {
	Total         int     `json:"total_entries"`
	Issues        []Issue `json:"issues"`
	PercentIntact float64 `json:"percent_intact"`
}

// VerifyAll sequentially verifies every entry, accumulating failures.
func (l *Log) VerifyAll(ctx context.Context) (*VerifyReport, error) {
	entries, err := l.store.List(ctx, Filter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list transparency entries")
	}

	report := &VerifyReport{Total: len(entries), PercentIntact: 100}
	for i, e := range entries {
		if err := l.VerifyEntry(e); err != nil {
			report.Issues = append(report.Issues, Issue{
				Index:  i,
				Entry:  e.ID,
				CaseID: e.CaseID,
				Action: e.Action,
				Detail: err.Error(),
			})
		}
	}
	if report.Total > 0 {
		intact := report.Total - len(report.Issues)
		report.PercentIntact = float64(intact) / float64(report.Total) * 100
	}

	if l.metrics != nil {
		l.metrics.VerifyRunsTotal.Inc()
		l.metrics.IntegrityFailures.Add(float64(len(report.Issues)))
	}
	if len(report.Issues) > 0 {
		l.logger.WarnContext(ctx, "transparency log integrity issues found",
			"total", report.Total,
			"issues", len(report.Issues),
		)
	}
	return report, nil
}

// Query returns entries matching the filter in append order.
func (l *Log) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	entries, err := l.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list transparency entries")
	}
	return entries, nil
}

// Timeline returns the complete append-ordered history for one case.
func (l *Log) Timeline(ctx context.Context, caseID uuid.UUID) ([]Entry, error) {
	return l.Query(ctx, Filter{CaseID: caseID})
}

// Summary aggregates audit activity in a time window.
type Summary struct {
	From              time.Time      `json:"from"`
	To                time.Time      `json:"to"`
	TotalActions      int            `json:"total_actions"`
	UniqueCases       int            `json:"unique_cases"`
	UniqueActors      int            `json:"unique_actors"`
	IntegrityIssues   int            `json:"integrity_issues"`
	PercentIntact     float64        `json:"percent_intact"`
	ActionCounts      map[string]int `json:"action_breakdown"`
	ActorCounts       map[string]int `json:"actor_breakdown"`
	JurisdictionCount map[string]int `json:"jurisdiction_breakdown"`
}

// Summarize computes audit summary statistics for the window, including an
// integrity pass over the matched entries.
func (l *Log) Summarize(ctx context.Context, from, to time.Time) (*Summary, error) {
	entries, err := l.store.List(ctx, Filter{From: from, To: to})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list transparency entries")
	}

	s := &Summary{
		From:              from,
		To:                to,
		TotalActions:      len(entries),
		PercentIntact:     100,
		ActionCounts:      map[string]int{},
		ActorCounts:       map[string]int{},
		JurisdictionCount: map[string]int{},
	}
	caseSet := map[uuid.UUID]struct{}{}
	actorSet := map[string]struct{}{}
	for _, e := range entries {
		caseSet[e.CaseID] = struct{}{}
		actorSet[e.Actor] = struct{}{}
		s.ActionCounts[e.Action]++
		s.ActorCounts[e.Actor]++
		s.JurisdictionCount[e.Jurisdiction]++
		if err := l.VerifyEntry(e); err != nil {
			s.IntegrityIssues++
		}
	}
	s.UniqueCases = len(caseSet)
	s.UniqueActors = len(actorSet)
	if s.TotalActions > 0 {
		s.PercentIntact = float64(s.TotalActions-s.IntegrityIssues) / float64(s.TotalActions) * 100
	}
	return s, nil
}
