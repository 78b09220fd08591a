package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"takedown/internal/auth"
	"takedown/pkg/requestcontext"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

func writeJSONError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + desc + `"}`))
}

// RequireAuth validates the bearer token and stores the actor identity,
// role, and token purpose in the request context.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActorID(ctx, claims.Subject)
			ctx = requestcontext.WithActorRole(ctx, claims.Role)
			ctx = requestcontext.WithPurpose(ctx, claims.Purpose)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePurpose rejects tokens whose purpose is outside the allowed set.
// Purpose binding is what keeps a submission token from driving reviews.
func RequirePurpose(logger *slog.Logger, purposes ...auth.Purpose) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(purposes))
	for _, p := range purposes {
		allowed[string(p)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			purpose := requestcontext.Purpose(ctx)
			if _, ok := allowed[purpose]; !ok {
				logger.WarnContext(ctx, "forbidden - token purpose not allowed",
					"purpose", purpose,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Token purpose not valid for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
