package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/rbac"
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

// MountRoutes registers catalog endpoints. Reads are public; writes
// require the catalog:manage grant.
func (h *Handler) MountRoutes(r chi.Router, guard *rbac.Middleware) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/services", h.listOfferings)
	r.Get("/services/{id}", h.getOffering)

	r.Group(func(r chi.Router) {
		r.Use(guard.Require("catalog", "manage"))
		r.Post("/products", h.createProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Post("/services", h.createOffering)
	})
}

type productRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gte=0"`
	Category    string   `json:"category" validate:"required,max=100"`
	ImageURL    string   `json:"imageUrl"`
	Colors      []string `json:"colors"`
	Sizes       []string `json:"sizes"`
	IsActive    *bool    `json:"isActive"`
}

type offeringRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"basePrice" validate:"gte=0"`
	ImageURL    string  `json:"imageUrl"`
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("list products", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "products": products})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.service.Product(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "product": product})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, err.Error())
		return
	}
	product := Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Colors:      req.Colors,
		Sizes:       req.Sizes,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.service.CreateProduct(r.Context(), &product); err != nil {
		h.logger.Error("create product", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "product": product})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, err.Error())
		return
	}
	product := Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Colors:      req.Colors,
		Sizes:       req.Sizes,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.service.UpdateProduct(r.Context(), &product); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "product": product})
}

func (h *Handler) listOfferings(w http.ResponseWriter, r *http.Request) {
	offerings, err := h.service.Offerings(r.Context())
	if err != nil {
		h.logger.Error("list services", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if offerings == nil {
		offerings = []Offering{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "services": offerings})
}

func (h *Handler) getOffering(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid service id")
		return
	}
	offering, err := h.service.Offering(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "service": offering})
}

func (h *Handler) createOffering(w http.ResponseWriter, r *http.Request) {
	var req offeringRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, err.Error())
		return
	}
	offering := Offering{
		Name:        req.Name,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if err := h.service.CreateOffering(r.Context(), &offering); err != nil {
		h.logger.Error("create service", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "service": offering})
}
