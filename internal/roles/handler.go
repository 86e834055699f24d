package roles

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/rbac"
)

// Handler exposes role administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers role endpoints under /roles.
func (h *Handler) MountRoutes(r chi.Router, guard *rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.Require("roles", "manage"))
		r.Get("/roles", h.list)
		r.Get("/roles/permissions", h.permissions)
		r.Post("/roles/{id}/permissions/{permissionId}", h.grant)
		r.Delete("/roles/{id}/permissions/{permissionId}", h.revoke)
	})
}

func param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list roles", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "roles": list})
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Permissions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "permissions": list})
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	roleID, err := param(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid role id")
		return
	}
	permissionID, err := param(r, "permissionId")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid permission id")
		return
	}
	if err := h.service.Grant(r.Context(), roleID, permissionID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	roleID, err := param(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid role id")
		return
	}
	permissionID, err := param(r, "permissionId")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid permission id")
		return
	}
	if err := h.service.Revoke(r.Context(), roleID, permissionID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}
