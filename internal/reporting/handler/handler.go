package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"takedown/internal/auth"
	"takedown/internal/platform/middleware"
	"takedown/internal/reporting"
	dErrors "takedown/pkg/domain-errors"
	"takedown/pkg/platform/httputil"
)

// Service defines the interface for compliance reporting.
type Service interface {
	Compile(ctx context.Context, from, to time.Time, jurisdiction string) (*reporting.Report, error)
}

// Handler handles compliance report endpoints.
type Handler struct {
	logger  *slog.Logger
	reports Service
}

// New creates a new reporting Handler.
func New(reports Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, reports: reports}
}

// Register registers the reporting routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	adminOnly := middleware.RequirePurpose(h.logger, auth.PurposeAdmin)
	r.With(adminOnly).Get("/v1/reports/compliance", h.handleCompliance)
}

func (h *Handler) handleCompliance(w http.ResponseWriter, r *http.Request) {
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

	report, err := h.reports.Compile(r.Context(), from, to, r.URL.Query().Get("jurisdiction"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
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
