package sla

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"takedown/internal/cases"
	"takedown/internal/directory"
	"takedown/internal/notify"
	"takedown/internal/sla/metrics"
	"takedown/internal/workflow"
	dErrors "takedown/pkg/domain-errors"
	"takedown/pkg/requestcontext"
)

// systemActorID identifies the worker in transparency entries it produces.
const systemActorID = "sla-worker"

const (
	defaultInterval         = 5 * time.Minute
	defaultBackoff          = time.Minute
	defaultWarningThreshold = 2 * time.Hour
)

// Worker polls for cases breaching or approaching their review SLA. Breaches
// are escalated through the normal transition path so they land in the
// transparency log like any other action; near-due cases get a deduplicated
// warning to the assigned officer. Escalation wins when a case qualifies for
// both.
type Worker struct {
	svc        *cases.Service
	dir        directory.Store
	dispatcher notify.Dispatcher
	deduper    notify.Deduper
	logger     *slog.Logger
	metrics    *metrics.Metrics

	interval         time.Duration
	backoff          time.Duration
	warningThreshold time.Duration
	now              func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

// WithBackoff overrides the delay after a failed cycle.
func WithBackoff(d time.Duration) Option {
	return func(w *Worker) { w.backoff = d }
}

// WithWarningThreshold overrides how close to the deadline warnings fire.
func WithWarningThreshold(d time.Duration) Option {
	return func(w *Worker) { w.warningThreshold = d }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker builds the SLA worker.
func NewWorker(svc *cases.Service, dir directory.Store, dispatcher notify.Dispatcher, deduper notify.Deduper, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		svc:              svc,
		dir:              dir,
		dispatcher:       dispatcher,
		deduper:          deduper,
		logger:           logger,
		interval:         defaultInterval,
		backoff:          defaultBackoff,
		warningThreshold: defaultWarningThreshold,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled. A failed cycle shortens the next
// sleep to the backoff so transient store outages recover quickly.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "sla worker started",
		"interval", w.interval,
		"warning_threshold", w.warningThreshold,
	)
	for {
		sleep := w.interval
		if err := w.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "sla cycle failed", "error", err)
			if w.metrics != nil {
				w.metrics.CycleErrors.Inc()
			}
			sleep = w.backoff
		}

		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "sla worker stopping")
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// Cycle runs one poll pass. Per-case failures are logged and counted but do
// not abort the pass; only a failed case listing does.
func (w *Worker) Cycle(ctx context.Context) error {
	open, err := w.svc.OpenWithDeadlines(ctx)
	if err != nil {
		return fmt.Errorf("list open cases: %w", err)
	}

	now := w.now().UTC()
	for _, c := range open {
		switch {
		case workflow.EscalationEligible(c, now):
			w.escalate(ctx, c, now)
		case workflow.WarningEligible(c, now, w.warningThreshold):
			w.warn(ctx, c, now)
		}
	}

	if w.metrics != nil {
		w.metrics.CyclesTotal.Inc()
	}
	return nil
}

func (w *Worker) escalate(ctx context.Context, c *workflow.Case, now time.Time) {
	actCtx := requestcontext.WithTime(ctx, now)
	updated, _, err := w.svc.Act(actCtx, c.ID, workflow.ExecuteRequest{
		Action:    workflow.ActionEscalate,
		ActorID:   systemActorID,
		ActorRole: workflow.RoleSystem,
	})
	if err != nil {
		// Another replica or an officer moved the case first. Both races
		// resolve themselves; the next cycle sees the new state.
		if dErrors.HasCode(err, dErrors.CodeConflict) || dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			if w.metrics != nil {
				w.metrics.ConflictSkips.Inc()
			}
			w.logger.DebugContext(ctx, "escalation skipped, case moved concurrently",
				"case_id", c.ID, "error", err)
			return
		}
		w.logger.ErrorContext(ctx, "escalation failed", "case_id", c.ID, "error", err)
		return
	}

	if w.metrics != nil {
		w.metrics.EscalationsTotal.Inc()
	}
	w.logger.WarnContext(ctx, "case escalated for sla breach",
		"case_id", updated.ID,
		"reference", updated.Reference,
		"escalation_level", updated.EscalationLevel,
	)

	vars := map[string]string{
		"reference":        updated.Reference,
		"escalation_level": fmt.Sprintf("%d", updated.EscalationLevel),
	}
	if updated.AssignedOfficerID != "" {
		w.send(ctx, notify.Message{
			CaseID:      updated.ID,
			TemplateKey: notify.TemplateSLAEscalated,
			RecipientID: updated.AssignedOfficerID,
			Severity:    notify.SeverityHigh,
			Variables:   vars,
		})
	}

	admins, err := w.dir.ActiveAdmins(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "admin lookup failed", "case_id", updated.ID, "error", err)
		return
	}
	for _, admin := range admins {
		w.send(ctx, notify.Message{
			CaseID:      updated.ID,
			TemplateKey: notify.TemplateSLAEscalated,
			RecipientID: admin.ID,
			Severity:    notify.SeverityCritical,
			Variables:   vars,
		})
	}
}

func (w *Worker) warn(ctx context.Context, c *workflow.Case, now time.Time) {
	// Nobody to warn until an officer picks the case up.
	if c.AssignedOfficerID == "" {
		return
	}

	first, err := w.deduper.Claim(ctx, c.ID.String(), notify.TemplateSLAWarning, w.warningThreshold)
	if err != nil {
		w.logger.ErrorContext(ctx, "warning dedupe claim failed", "case_id", c.ID, "error", err)
		return
	}
	if !first {
		return
	}

	remaining := time.Duration(0)
	if c.SLADueAt != nil {
		remaining = c.SLADueAt.Sub(now).Round(time.Minute)
	}
	w.send(ctx, notify.Message{
		CaseID:      c.ID,
		TemplateKey: notify.TemplateSLAWarning,
		RecipientID: c.AssignedOfficerID,
		Severity:    notify.SeverityHigh,
		Variables: map[string]string{
			"reference": c.Reference,
			"remaining": remaining.String(),
		},
	})
	if w.metrics != nil {
		w.metrics.WarningsTotal.Inc()
	}
	w.logger.InfoContext(ctx, "sla warning sent",
		"case_id", c.ID,
		"officer_id", c.AssignedOfficerID,
		"remaining", remaining,
	)
}

func (w *Worker) send(ctx context.Context, msg notify.Message) {
	if w.dispatcher == nil {
		return
	}
	if _, err := w.dispatcher.Trigger(ctx, msg); err != nil {
		w.logger.WarnContext(ctx, "notification dispatch failed",
			"case_id", msg.CaseID,
			"template_key", msg.TemplateKey,
			"error", err,
		)
	}
}
