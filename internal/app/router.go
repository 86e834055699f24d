package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/maderia/maderia/internal/auth"
	"github.com/maderia/maderia/internal/catalog"
	"github.com/maderia/maderia/internal/dashboard"
	"github.com/maderia/maderia/internal/orders"
	"github.com/maderia/maderia/internal/quotations"
	"github.com/maderia/maderia/internal/rbac"
	"github.com/maderia/maderia/internal/roles"
	"github.com/maderia/maderia/internal/shared"
	"github.com/maderia/maderia/internal/users"
	"github.com/maderia/maderia/internal/visits"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	RBACMiddleware    *rbac.Middleware
	AuthHandler       *auth.Handler
	CatalogHandler    *catalog.Handler
	OrdersHandler     *orders.Handler
	QuotationsHandler *quotations.Handler
	VisitsHandler     *visits.Handler
	DashboardHandler  *dashboard.Handler
	UsersHandler      *users.Handler
	RolesHandler      *roles.Handler
}

// NewRouter constructs the chi router with the Maderia defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		params.AuthHandler.MountRoutes(api)
		params.CatalogHandler.MountRoutes(api, params.RBACMiddleware)
		params.OrdersHandler.MountRoutes(api, params.RBACMiddleware)
		params.QuotationsHandler.MountRoutes(api, params.RBACMiddleware)
		params.VisitsHandler.MountRoutes(api, params.RBACMiddleware)
		params.DashboardHandler.MountRoutes(api, params.RBACMiddleware)
		params.UsersHandler.MountRoutes(api, params.RBACMiddleware)
		params.RolesHandler.MountRoutes(api, params.RBACMiddleware)
	})

	return r
}
