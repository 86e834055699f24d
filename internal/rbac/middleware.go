package rbac

import (
	"log/slog"
	"net/http"

	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/shared"
)

// Middleware guards routes behind permission checks.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require allows the request through only when the session user holds
// the module:action grant.
func (m *Middleware) Require(module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := shared.UserIDFromContext(r.Context())
			if userID == 0 {
				httpx.Problem(w, http.StatusUnauthorized, "authentication required")
				return
			}
			ok, err := m.Service.Has(r.Context(), userID, module, action)
			if err != nil {
				m.Logger.Error("rbac check failed", "error", err, "user_id", userID)
				httpx.Problem(w, http.StatusInternalServerError, "permission check failed")
				return
			}
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth only checks that a session user is present.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.UserIDFromContext(r.Context()) == 0 {
			httpx.Problem(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
