package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/rbac"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the report endpoint.
func (h *Handler) MountRoutes(r chi.Router, guard *rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.Require("dashboard", "view"))
		r.Get("/dashboard", h.report)
	})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	limit, _ := strconv.Atoi(qs.Get("limit"))
	query := Query{
		From:    qs.Get("from"),
		To:      qs.Get("to"),
		Period:  qs.Get("period"),
		Compare: true,
		Limit:   limit,
	}
	switch qs.Get("compare") {
	case "false", "0", "no":
		query.Compare = false
	}

	resp, err := h.service.Handle(r.Context(), query)
	if err != nil {
		h.logger.Error("dashboard report", "error", err)
		httpx.RespondError(w, err)
		return
	}
	payload := map[string]any{"ok": true}
	if resp.Report != nil {
		payload["report"] = resp.Report
	}
	if resp.Previous != nil {
		payload["previous"] = resp.Previous
	}
	if resp.Current != nil {
		payload["current"] = resp.Current
	}
	httpx.JSON(w, http.StatusOK, payload)
}
