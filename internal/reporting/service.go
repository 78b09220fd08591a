package reporting

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"takedown/internal/transparency"
	"takedown/internal/workflow"
)

// Service derives compliance reports from the transparency log. The log is
// the source of truth here, not the case table: a report computed from the
// audit trail cannot disagree with what was audited.
type Service struct {
	log    *transparency.Log
	logger *slog.Logger
}

// NewService builds the reporting service.
func NewService(log *transparency.Log, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{log: log, logger: logger}
}

// Report summarizes case handling compliance over a window.
type Report struct {
	From               time.Time      `json:"from"`
	To                 time.Time      `json:"to"`
	Jurisdiction       string         `json:"jurisdiction,omitempty"`
	TotalCases         int            `json:"total_cases"`
	ResolvedCases      int            `json:"resolved_cases"`
	SLAViolations      int            `json:"sla_violations"`
	ComplianceRate     float64        `json:"compliance_rate"`
	AvgResolutionHours float64        `json:"avg_resolution_hours"`
	CasesByState       map[string]int `json:"cases_by_state"`
}

// caseTrack accumulates per-case facts while scanning the log once.
type caseTrack struct {
	submittedAt time.Time
	resolvedAt  time.Time
	lastState   string
	violated    bool
	resolved    bool
}

// resolution states. Rejection resolves a case the same as approval; closure
// just archives an already-resolved one.
func isResolution(state string) bool {
	return state == string(workflow.StateApproved) || state == string(workflow.StateRejected)
}

// Compile scans the window's transparency entries and computes the report.
// A case counts as violated when any of its transitions carried the SLA
// violation reason; the compliance rate is the share of resolved cases that
// never violated. An empty jurisdiction covers all jurisdictions.
func (s *Service) Compile(ctx context.Context, from, to time.Time, jurisdiction string) (*Report, error) {
	entries, err := s.log.Query(ctx, transparency.Filter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	tracks := make(map[uuid.UUID]*caseTrack)
	for _, e := range entries {
		if jurisdiction != "" && e.Jurisdiction != jurisdiction {
			continue
		}
		t, ok := tracks[e.CaseID]
		if !ok {
			t = &caseTrack{}
			tracks[e.CaseID] = t
		}
		if e.ReasonCode == string(workflow.ReasonInitialSubmission) {
			t.submittedAt = e.Timestamp
		}
		if e.ReasonCode == string(workflow.ReasonSLAViolation) {
			t.violated = true
		}
		if isResolution(e.NewState) && !t.resolved {
			t.resolved = true
			t.resolvedAt = e.Timestamp
		}
		t.lastState = e.NewState
	}

	report := &Report{
		From:         from,
		To:           to,
		Jurisdiction: jurisdiction,
		TotalCases:   len(tracks),
		CasesByState: map[string]int{},
	}

	var resolutionHours float64
	var timedResolutions int
	compliant := 0
	for _, t := range tracks {
		report.CasesByState[t.lastState]++
		if t.violated {
			report.SLAViolations++
		}
		if !t.resolved {
			continue
		}
		report.ResolvedCases++
		if !t.violated {
			compliant++
		}
		if !t.submittedAt.IsZero() {
			resolutionHours += t.resolvedAt.Sub(t.submittedAt).Hours()
			timedResolutions++
		}
	}
	if report.ResolvedCases > 0 {
		report.ComplianceRate = float64(compliant) / float64(report.ResolvedCases) * 100
	}
	if timedResolutions > 0 {
		report.AvgResolutionHours = resolutionHours / float64(timedResolutions)
	}

	s.logger.DebugContext(ctx, "compliance report compiled",
		"total_cases", report.TotalCases,
		"resolved", report.ResolvedCases,
		"violations", report.SLAViolations,
	)
	return report, nil
}
