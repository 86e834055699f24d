package visits

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/rbac"
	"github.com/maderia/maderia/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers visit endpoints. Self-service booking accepts
// guests, so it sits outside the auth guard.
func (h *Handler) MountRoutes(r chi.Router, guard *rbac.Middleware) {
	r.Post("/visits/mine", h.bookMine)
	r.Get("/visits/available-slots", h.availableSlots)

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Get("/visits/mine", h.listMine)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Require("visits", "manage"))
		r.Get("/visits", h.list)
		r.Post("/visits", h.create)
		r.Get("/visits/{id}", h.get)
		r.Put("/visits/{id}/status", h.setStatus)
	})
}

type bookRequest struct {
	VisitDate   string  `json:"visitDate" validate:"required"`
	VisitTime   string  `json:"visitTime" validate:"required"`
	Address     string  `json:"address" validate:"required,max=400"`
	Status      string  `json:"status"`
	Description string  `json:"description" validate:"max=2000"`
	UserName    string  `json:"userName"`
	UserEmail   string  `json:"userEmail" validate:"omitempty,email"`
	UserPhone   string  `json:"userPhone"`
	ServiceIDs  []int64 `json:"serviceIds"`
}

func (h *Handler) respondBooking(w http.ResponseWriter, v Visit, err error, guest bool) {
	if err != nil {
		var conflict *SlotConflictError
		if errors.As(err, &conflict) {
			httpx.ProblemWith(w, http.StatusConflict, "time slot not available", map[string]any{
				"conflictVisitId":   conflict.VisitID,
				"conflictVisitDate": conflict.VisitDate.Format(time.RFC3339),
			})
			return
		}
		httpx.RespondError(w, err)
		return
	}
	message := "Visit created successfully"
	if guest {
		message = "Visit created successfully. We will contact you soon."
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "visit": v, "message": message})
}

func (h *Handler) bookMine(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, err.Error())
		return
	}

	in := BookInput{
		GuestName:   req.UserName,
		GuestEmail:  req.UserEmail,
		GuestPhone:  req.UserPhone,
		VisitDate:   req.VisitDate,
		VisitTime:   req.VisitTime,
		Address:     req.Address,
		Status:      req.Status,
		Description: req.Description,
		ServiceIDs:  req.ServiceIDs,
	}
	guest := true
	if userID := shared.UserIDFromContext(r.Context()); userID != 0 {
		in.UserID = &userID
		in.GuestName, in.GuestEmail, in.GuestPhone = "", "", ""
		guest = false
	}

	v, err := h.service.Book(r.Context(), in)
	h.respondBooking(w, v, err, guest)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.service.Book(r.Context(), BookInput{
		UserID:      &userID,
		VisitDate:   req.VisitDate,
		VisitTime:   req.VisitTime,
		Address:     req.Address,
		Status:      req.Status,
		Description: req.Description,
		ServiceIDs:  req.ServiceIDs,
	})
	h.respondBooking(w, v, err, false)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list visits", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Visit{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "visits": list})
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMine(r.Context(), shared.UserIDFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Visit{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "visits": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid visit id")
		return
	}
	v, err := h.service.Find(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "visit": v})
}

func (h *Handler) availableSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		httpx.Problem(w, http.StatusBadRequest, "date query parameter is required")
		return
	}
	slots, err := h.service.AvailableSlots(r.Context(), date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "availableSlots": slots})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid visit id")
		return
	}
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.SetStatus(r.Context(), id, req.Status); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}
