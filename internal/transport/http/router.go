package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"takedown/internal/platform/middleware"
	"takedown/pkg/platform/httputil"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// Deps collects everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	Verifier     middleware.TokenVerifier
	Auth         Registrar
	Cases        Registrar
	Transparency Registrar
	Reports      Registrar
	// LoginLimit optionally throttles the auth routes.
	LoginLimit func(http.Handler) http.Handler
}

// New assembles the HTTP surface. Login, health, and metrics are public;
// everything else sits behind bearer-token auth with per-route purpose checks
// inside the domain handlers.
func New(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if d.LoginLimit != nil {
		r.Group(func(ar chi.Router) {
			ar.Use(d.LoginLimit)
			d.Auth.Register(ar)
		})
	} else {
		d.Auth.Register(r)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(d.Verifier, d.Logger))
		d.Cases.Register(pr)
		d.Transparency.Register(pr)
		d.Reports.Register(pr)
	})
	return r
}
