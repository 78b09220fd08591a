package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"takedown/internal/auth"
	"takedown/internal/platform/middleware"
	"takedown/internal/transparency"
	dErrors "takedown/pkg/domain-errors"
	"takedown/pkg/platform/httputil"
)

// Service defines the interface for transparency log operations.
type Service interface {
	Query(ctx context.Context, filter transparency.Filter) ([]transparency.Entry, error)
	VerifyAll(ctx context.Context) (*transparency.VerifyReport, error)
	Summarize(ctx context.Context, from, to time.Time) (*transparency.Summary, error)
}

// Handler handles transparency log endpoints. Queries are open to reviewers;
// integrity verification and summaries are admin operations.
type Handler struct {
	logger *slog.Logger
	log    Service
}

// New creates a new transparency Handler.
func New(log Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, log: log}
}

// Register registers the transparency routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	reviewers := middleware.RequirePurpose(h.logger, auth.PurposeReview, auth.PurposeAdmin)
	adminOnly := middleware.RequirePurpose(h.logger, auth.PurposeAdmin)

	r.With(reviewers).Get("/v1/transparency", h.handleQuery)
	r.With(adminOnly).Post("/v1/transparency/verify", h.handleVerify)
	r.With(adminOnly).Get("/v1/transparency/summary", h.handleSummary)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.log.Query(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []transparency.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	report, err := h.log.VerifyAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, err := timeParam(r, "from")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := timeParam(r, "to")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.log.Summarize(r.Context(), from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func filterFromQuery(r *http.Request) (transparency.Filter, error) {
	q := r.URL.Query()
	filter := transparency.Filter{
		Action:     q.Get("action"),
		Actor:      q.Get("actor"),
		ReasonCode: q.Get("reason_code"),
	}

	if v := q.Get("case_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid case_id")
		}
		filter.CaseID = id
	}
	var err error
	if filter.From, err = timeParam(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = timeParam(r, "to"); err != nil {
		return filter, err
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid limit")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func timeParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "invalid "+name+" timestamp, expected RFC3339")
	}
	return t, nil
}
