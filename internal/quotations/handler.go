package quotations

import (
	"log/slog"
	"net/http"
	"strconv"

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

// MountRoutes registers quotation endpoints under /quotations.
func (h *Handler) MountRoutes(r chi.Router, guard *rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Get("/quotations/cart", h.getCart)
		r.Post("/quotations/cart/items", h.addCartItem)
		r.Post("/quotations/cart/custom-items", h.addCustomCartItem)
		r.Put("/quotations/cart/items/{itemId}", h.updateCartItemQuantity)
		r.Delete("/quotations/cart/items/{itemId}", h.removeCartItem)
		r.Post("/quotations/cart/submit", h.submitCart)
		r.Post("/quotations/quick", h.quickCreate)
		r.Get("/quotations/mine", h.listMine)
		r.Post("/quotations/{id}/items", h.addItem)
		r.Put("/quotations/{id}/items/{itemId}", h.updateItem)
		r.Delete("/quotations/{id}/items/{itemId}", h.removeItem)
		r.Post("/quotations/{id}/submit", h.submit)
		r.Post("/quotations/{id}/decision", h.decide)
		r.Post("/quotations/{id}/messages", h.postMessage)
		r.Get("/quotations/{id}/messages", h.listMessages)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Require("quotations", "manage"))
		r.Get("/quotations", h.listAll)
		r.Get("/quotations/{id}", h.get)
		r.Put("/quotations/{id}/quote", h.setQuote)
	})
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) decodeValid(r *http.Request, w http.ResponseWriter, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	cart, err := h.service.GetOrCreateCart(r.Context(), userID)
	if err != nil {
		h.logger.Error("get cart", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": cart})
}

type addCartItemRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color" validate:"required"`
	Size      string `json:"size"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	var req addCartItemRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	cart, err := h.service.AddCartItem(r.Context(), userID, req.ProductID, req.Quantity, req.Color, req.Size)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "quotation": cart})
}

type addCustomItemRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	Description    string `json:"description" validate:"required"`
	WoodType       string `json:"woodType"`
	ReferenceImage string `json:"referenceImage"`
	Quantity       int    `json:"quantity"`
	Color          string `json:"color" validate:"required"`
	Size           string `json:"size"`
}

func (h *Handler) addCustomCartItem(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	var req addCustomItemRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	cart, err := h.service.AddCustomCartItem(r.Context(), userID, CustomItemInput{
		Name:           req.Name,
		Description:    req.Description,
		WoodType:       req.WoodType,
		ReferenceImage: req.ReferenceImage,
		Quantity:       req.Quantity,
		Color:          req.Color,
		Size:           req.Size,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "quotation": cart})
}

func (h *Handler) updateCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	itemID, err := idParam(r, "itemId")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req struct {
		Quantity int `json:"quantity" validate:"required,gte=1"`
	}
	if !h.decodeValid(r, w, &req) {
		return
	}
	cart, err := h.service.UpdateCartItemQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": cart})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	itemID, err := idParam(r, "itemId")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid item id")
		return
	}
	cart, err := h.service.RemoveCartItem(r.Context(), userID, itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": cart})
}

func (h *Handler) submitCart(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	q, err := h.service.SubmitCart(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": q})
}

type quickCreateRequest struct {
	Items []struct {
		ProductID         *int64  `json:"productId"`
		IsCustom          bool    `json:"isCustom"`
		CustomName        string  `json:"name"`
		CustomDescription string  `json:"description"`
		WoodType          string  `json:"woodType"`
		ReferenceImage    string  `json:"referenceImage"`
		Quantity          int     `json:"quantity"`
		Color             string  `json:"color" validate:"required"`
		Size              string  `json:"size"`
		Price             float64 `json:"price"`
	} `json:"items" validate:"required,min=1,dive"`
	AdminNotes string `json:"adminNotes"`
}

func (h *Handler) quickCreate(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	var req quickCreateRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, Item{
			ProductID:         it.ProductID,
			IsCustom:          it.IsCustom,
			CustomName:        it.CustomName,
			CustomDescription: it.CustomDescription,
			WoodType:          it.WoodType,
			ReferenceImage:    it.ReferenceImage,
			Quantity:          it.Quantity,
			Color:             it.Color,
			Size:              it.Size,
			Price:             it.Price,
		})
	}
	q, err := h.service.QuickCreate(r.Context(), userID, items, req.AdminNotes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "quotation": q})
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	list, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotations": list})
}

type itemRequest struct {
	ProductID         *int64 `json:"productId"`
	IsCustom          bool   `json:"isCustom"`
	CustomName        string `json:"name"`
	CustomDescription string `json:"description"`
	WoodType          string `json:"woodType"`
	ReferenceImage    string `json:"referenceImage"`
	Quantity          int    `json:"quantity"`
	Color             string `json:"color" validate:"required"`
	Size              string `json:"size"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	var req itemRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	q, err := h.service.AddItem(r.Context(), id, userID, Item{
		ProductID:         req.ProductID,
		IsCustom:          req.IsCustom,
		CustomName:        req.CustomName,
		CustomDescription: req.CustomDescription,
		WoodType:          req.WoodType,
		ReferenceImage:    req.ReferenceImage,
		Quantity:          req.Quantity,
		Color:             req.Color,
		Size:              req.Size,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "quotation": q})
}

type itemPatchRequest struct {
	Quantity   *int     `json:"quantity" validate:"omitempty,gte=1"`
	Color      *string  `json:"color"`
	Size       *string  `json:"size"`
	Price      *float64 `json:"price" validate:"omitempty,gte=0"`
	AdminNotes *string  `json:"adminNotes"`
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	itemID, err := idParam(r, "itemId")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req itemPatchRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	q, err := h.service.UpdateItem(r.Context(), id, userID, itemID, ItemPatch{
		Quantity:   req.Quantity,
		Color:      req.Color,
		Size:       req.Size,
		Price:      req.Price,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": q})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	itemID, err := idParam(r, "itemId")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid item id")
		return
	}
	q, err := h.service.RemoveItem(r.Context(), id, userID, itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": q})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	q, err := h.service.Submit(r.Context(), id, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": q})
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	var req struct {
		Decision string `json:"decision" validate:"required"`
	}
	if !h.decodeValid(r, w, &req) {
		return
	}
	result, err := h.service.Decide(r.Context(), id, userID, req.Decision)
	if err != nil {
		h.logger.Error("quotation decision", "quotation_id", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	var req struct {
		Body string `json:"body" validate:"required,max=2000"`
	}
	if !h.decodeValid(r, w, &req) {
		return
	}
	msg, err := h.service.PostMessage(r.Context(), id, userID, req.Body)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "message": msg})
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	list, err := h.service.Messages(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "messages": list})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	page, _ := strconv.Atoi(qs.Get("page"))
	limit, _ := strconv.Atoi(qs.Get("limit"))
	list, total, err := h.service.ListAll(r.Context(), qs.Get("status"), page, limit)
	if err != nil {
		h.logger.Error("list quotations", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotations": list, "total": total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": q})
}

type setQuoteRequest struct {
	Items []struct {
		ItemID     int64    `json:"itemId" validate:"required,gt=0"`
		Price      *float64 `json:"price" validate:"omitempty,gte=0"`
		AdminNotes *string  `json:"adminNotes"`
	} `json:"items" validate:"dive"`
	TotalEstimate *float64 `json:"totalEstimate" validate:"omitempty,gte=0"`
	AdminNotes    *string  `json:"adminNotes"`
}

func (h *Handler) setQuote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	var req setQuoteRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	items := make([]QuoteItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, QuoteItemInput{ItemID: it.ItemID, Price: it.Price, AdminNotes: it.AdminNotes})
	}
	q, err := h.service.SetQuote(r.Context(), id, items, req.TotalEstimate, req.AdminNotes)
	if err != nil {
		h.logger.Error("set quote", "quotation_id", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "quotation": q})
}
