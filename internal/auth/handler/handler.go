package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"takedown/internal/auth"
	dErrors "takedown/pkg/domain-errors"
	"takedown/pkg/platform/httputil"
)

// Service defines the interface for authentication operations.
type Service interface {
	Login(ctx context.Context, username, password string) (*auth.Token, error)
}

// Handler handles authentication endpoints.
type Handler struct {
	logger *slog.Logger
	auth   Service
}

// New creates a new auth Handler.
func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, auth: auth}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/auth/login", h.handleLogin)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[loginRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username and password are required"))
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}
