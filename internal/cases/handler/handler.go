package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"takedown/internal/auth"
	"takedown/internal/cases"
	"takedown/internal/platform/middleware"
	"takedown/internal/transparency"
	"takedown/internal/workflow"
	dErrors "takedown/pkg/domain-errors"
	"takedown/pkg/platform/httputil"
	"takedown/pkg/requestcontext"
)

// Service defines the interface for case lifecycle operations.
type Service interface {
	Submit(ctx context.Context, req cases.SubmitRequest) (*workflow.Case, error)
	Act(ctx context.Context, caseID uuid.UUID, req workflow.ExecuteRequest) (*workflow.Case, *workflow.Transition, error)
	Get(ctx context.Context, caseID uuid.UUID) (*workflow.Case, error)
	Timeline(ctx context.Context, caseID uuid.UUID) ([]transparency.Entry, error)
	AvailableActions(ctx context.Context, caseID uuid.UUID, role workflow.Role) ([]workflow.Action, error)
}

// Handler handles case lifecycle endpoints. All routes sit behind RequireAuth;
// purpose checks are applied per route since submission and review tokens get
// different surfaces.
type Handler struct {
	logger *slog.Logger
	cases  Service
}

// New creates a new case Handler.
func New(cases Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, cases: cases}
}

// Register registers the case routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	submitOnly := middleware.RequirePurpose(h.logger, auth.PurposeSubmission)
	reviewers := middleware.RequirePurpose(h.logger, auth.PurposeReview, auth.PurposeAdmin)
	anyone := middleware.RequirePurpose(h.logger, auth.PurposeSubmission, auth.PurposeReview, auth.PurposeAdmin)

	r.With(submitOnly).Post("/v1/cases", h.handleSubmit)
	r.With(anyone).Get("/v1/cases/{id}", h.handleGet)
	r.With(reviewers).Post("/v1/cases/{id}/actions", h.handleAct)
	r.With(reviewers).Get("/v1/cases/{id}/actions", h.handleAvailableActions)
	r.With(anyone).Get("/v1/cases/{id}/timeline", h.handleTimeline)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[SubmitCaseRequest](w, r, h.logger)
	if !ok {
		return
	}

	c, err := h.cases.Submit(ctx, cases.SubmitRequest{
		SubmitterID:  requestcontext.ActorID(ctx),
		Priority:     workflow.Priority(req.Priority),
		Jurisdiction: req.Jurisdiction,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaseResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	c, err := h.cases.Get(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !h.mayView(ctx, c) {
		// Report not-found rather than forbidden so submitters cannot probe
		// for other victims' case IDs.
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "case not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleAct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[CaseActionRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Action == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "action is required"))
		return
	}

	c, tr, err := h.cases.Act(ctx, caseID, workflow.ExecuteRequest{
		Action:         workflow.Action(req.Action),
		ActorID:        requestcontext.ActorID(ctx),
		ActorRole:      workflow.Role(requestcontext.ActorRole(ctx)),
		Notes:          req.Notes,
		AssigneeID:     req.AssigneeID,
		ReasonOverride: workflow.ReasonCode(req.Reason),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ActionResultResponse{
		Case:       toCaseResponse(c, requestcontext.Now(ctx)),
		Action:     string(tr.Action),
		From:       string(tr.From),
		To:         string(tr.To),
		Reason:     string(tr.Reason),
		OccurredAt: tr.OccurredAt,
	})
}

func (h *Handler) handleAvailableActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	actions, err := h.cases.AvailableActions(ctx, caseID, workflow.Role(requestcontext.ActorRole(ctx)))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := AvailableActionsResponse{Actions: make([]string, 0, len(actions))}
	for _, a := range actions {
		resp.Actions = append(resp.Actions, string(a))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	c, err := h.cases.Get(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !h.mayView(ctx, c) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "case not found"))
		return
	}

	entries, err := h.cases.Timeline(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []transparency.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid case id"))
		return uuid.Nil, false
	}
	return id, true
}

// mayView restricts submission tokens to the submitter's own cases. Review and
// admin tokens see everything.
func (h *Handler) mayView(ctx context.Context, c *workflow.Case) bool {
	if requestcontext.Purpose(ctx) != string(auth.PurposeSubmission) {
		return true
	}
	return c.SubmitterID == requestcontext.ActorID(ctx)
}
