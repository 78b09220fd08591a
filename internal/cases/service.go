package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"takedown/internal/cases/metrics"
	"takedown/internal/notify"
	"takedown/internal/transparency"
	"takedown/internal/workflow"
	dErrors "takedown/pkg/domain-errors"
	"takedown/pkg/platform/sentinel"
	"takedown/pkg/requestcontext"
)

// Service orchestrates the case lifecycle: it loads a case snapshot, asks the
// engine to execute the transition, and persists the new state together with
// its transparency entry in one committed unit. Notification dispatch happens
// after commit and never blocks or rolls back a transition.
type Service struct {
	store      Store
	txRunner   TxRunner
	engine     *workflow.Engine
	log        *transparency.Log
	dispatcher notify.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDispatcher attaches a notification dispatcher.
func WithDispatcher(d notify.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// NewService builds the case lifecycle service.
func NewService(store Store, txRunner TxRunner, engine *workflow.Engine, log *transparency.Log, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:    store,
		txRunner: txRunner,
		engine:   engine,
		log:      log,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest carries a new takedown report.
type SubmitRequest struct {
	SubmitterID  string
	Priority     workflow.Priority
	Jurisdiction string
}

// submitAction labels the initial transparency entry; it is not a transition
// table action since submission creates the case rather than moving it.
const submitAction = "submit"

// Submit creates a case in the submitted state and records the initial
// transparency entry in the same committed unit.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*workflow.Case, error) {
	if req.SubmitterID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "submitter id is required")
	}
	if !req.Priority.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid priority %q", req.Priority))
	}
	if req.Jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "jurisdiction is required")
	}

	now := requestcontext.Now(ctx)
	id := uuid.New()
	c := workflow.NewCase(id, newReference(id, now.Year()), req.Priority, req.Jurisdiction, req.SubmitterID, now)

	err := s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, c); err != nil {
			return fmt.Errorf("create case: %w", err)
		}
		_, err := s.log.Append(txCtx, transparency.AppendRequest{
			Timestamp:    now,
			CaseID:       c.ID,
			Action:       submitAction,
			Actor:        req.SubmitterID,
			OldState:     "",
			NewState:     string(workflow.StateSubmitted),
			ReasonCode:   string(workflow.ReasonInitialSubmission),
			Jurisdiction: c.Jurisdiction,
			Priority:     string(c.Priority),
		})
		return err
	})
	if err != nil {
		return nil, s.mapStoreErr(err, "submit case")
	}

	if s.metrics != nil {
		s.metrics.SubmissionsTotal.Inc()
	}
	s.logger.InfoContext(ctx, "case submitted",
		"case_id", c.ID,
		"reference", c.Reference,
		"priority", c.Priority,
		"jurisdiction", c.Jurisdiction,
	)

	s.trigger(ctx, notify.Message{
		CaseID:      c.ID,
		TemplateKey: notify.TemplateCaseStatusChanged,
		RecipientID: c.SubmitterID,
		Severity:    notify.SeverityInfo,
		Variables: map[string]string{
			"reference": c.Reference,
			"new_state": string(c.State),
		},
	})
	return c, nil
}

// Act executes one lifecycle action on a case. The version observed at fetch
// time guards the save: a concurrent writer causes a conflict error and the
// caller re-reads and re-decides.
func (s *Service) Act(ctx context.Context, caseID uuid.UUID, req workflow.ExecuteRequest) (*workflow.Case, *workflow.Transition, error) {
	c, err := s.store.Fetch(ctx, caseID)
	if err != nil {
		return nil, nil, s.mapStoreErr(err, "fetch case")
	}
	expectedVersion := c.Version

	tr, err := s.engine.Execute(ctx, c, req)
	if err != nil {
		return nil, nil, err
	}
	applyAssignment(c, req)

	err = s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Save(txCtx, c, expectedVersion); err != nil {
			return fmt.Errorf("save case: %w", err)
		}
		_, err := s.log.Append(txCtx, transparency.AppendRequest{
			Timestamp:    tr.OccurredAt,
			CaseID:       c.ID,
			Action:       string(tr.Action),
			Actor:        tr.ActorID,
			OldState:     string(tr.From),
			NewState:     string(tr.To),
			ReasonCode:   string(tr.Reason),
			Jurisdiction: c.Jurisdiction,
			Priority:     string(c.Priority),
			Metadata:     transitionMetadata(tr),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) && s.metrics != nil {
			s.metrics.ConflictsTotal.Inc()
		}
		return nil, nil, s.mapStoreErr(err, "persist transition")
	}

	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(tr.Action)).Inc()
	}
	s.logger.InfoContext(ctx, "case transition executed",
		"case_id", c.ID,
		"action", tr.Action,
		"from", tr.From,
		"to", tr.To,
		"reason", tr.Reason,
		"actor", tr.ActorID,
	)

	s.trigger(ctx, notify.Message{
		CaseID:      c.ID,
		TemplateKey: notify.TemplateCaseStatusChanged,
		RecipientID: c.SubmitterID,
		Severity:    notify.SeverityInfo,
		Variables: map[string]string{
			"reference": c.Reference,
			"action":    string(tr.Action),
			"old_state": string(tr.From),
			"new_state": string(tr.To),
		},
	})
	return c, tr, nil
}

// Get returns a snapshot of the case.
func (s *Service) Get(ctx context.Context, caseID uuid.UUID) (*workflow.Case, error) {
	c, err := s.store.Fetch(ctx, caseID)
	if err != nil {
		return nil, s.mapStoreErr(err, "fetch case")
	}
	return c, nil
}

// Timeline returns the complete transparency history for the case, confirming
// it exists first so missing cases are a not-found rather than an empty list.
func (s *Service) Timeline(ctx context.Context, caseID uuid.UUID) ([]transparency.Entry, error) {
	if _, err := s.store.Fetch(ctx, caseID); err != nil {
		return nil, s.mapStoreErr(err, "fetch case")
	}
	return s.log.Timeline(ctx, caseID)
}

// AvailableActions lists the actions the given role may take on the case.
func (s *Service) AvailableActions(ctx context.Context, caseID uuid.UUID, role workflow.Role) ([]workflow.Action, error) {
	c, err := s.store.Fetch(ctx, caseID)
	if err != nil {
		return nil, s.mapStoreErr(err, "fetch case")
	}
	return s.engine.AvailableActions(c, role), nil
}

// OpenWithDeadlines returns cases under active review clocks, earliest due
// first. The SLA worker polls this.
func (s *Service) OpenWithDeadlines(ctx context.Context) ([]*workflow.Case, error) {
	out, err := s.store.FetchByStates(ctx,
		[]workflow.CaseState{workflow.StateInReview, workflow.StateEscalated}, true)
	if err != nil {
		return nil, s.mapStoreErr(err, "fetch open cases")
	}
	return out, nil
}

func (s *Service) trigger(ctx context.Context, msg notify.Message) {
	if s.dispatcher == nil {
		return
	}
	if _, err := s.dispatcher.Trigger(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "notification dispatch failed",
			"case_id", msg.CaseID,
			"template_key", msg.TemplateKey,
			"error", err,
		)
	}
}

func (s *Service) mapStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "case changed, please retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op)
	}
}

func transitionMetadata(tr *workflow.Transition) map[string]string {
	md := map[string]string{"actor_role": string(tr.ActorRole)}
	if tr.Notes != "" {
		md["notes"] = tr.Notes
	}
	return md
}

// applyAssignment updates the officer on the case after a successful
// transition: taking up review assigns the acting officer, reassignment
// assigns the named target.
func applyAssignment(c *workflow.Case, req workflow.ExecuteRequest) {
	switch req.Action {
	case workflow.ActionStartReview:
		c.AssignedOfficerID = req.ActorID
	case workflow.ActionReassign:
		if req.AssigneeID != "" {
			c.AssignedOfficerID = req.AssigneeID
		}
	}
}

// newReference derives a human-readable case reference from the case ID.
func newReference(id uuid.UUID, year int) string {
	compact := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("TD-%d-%s", year, strings.ToUpper(compact[:8]))
}
