package orders

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/platform/money"
	"github.com/maderia/maderia/internal/rbac"
	"github.com/maderia/maderia/internal/shared"
)

// maxReceiptBytes caps uploaded receipt images.
const maxReceiptBytes = 10 << 20

// PermissionChecker reports whether a user holds a module:action grant.
// Satisfied by the rbac service.
type PermissionChecker interface {
	Has(ctx context.Context, userID int64, module, action string) (bool, error)
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	perms    PermissionChecker
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, perms PermissionChecker) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		perms:    perms,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers order endpoints under /orders.
func (h *Handler) MountRoutes(r chi.Router, guard *rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Post("/orders/mine", h.createMine)
		r.Get("/orders/mine", h.listMine)
		r.Get("/orders/{id}", h.get)
		r.Post("/orders/{id}/payments/ocr", h.ocrPreview)
		r.Post("/orders/{id}/payments/ocr-submit", h.ocrSubmit)
		r.Post("/orders/{id}/reviews", h.createReview)
		r.Get("/orders/{id}/reviews", h.listReviews)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Require("orders", "manage"))
		r.Post("/orders", h.create)
		r.Get("/orders", h.listOpen)
		r.Put("/orders/{id}/status", h.setStatus)
		r.Post("/orders/{id}/payments", h.createPayment)
		r.Put("/orders/{id}/payments/{paymentId}", h.updatePayment)
		r.Delete("/orders/{id}/payments/{paymentId}", h.removePayment)
		r.Post("/orders/{id}/attachments", h.createAttachment)
		r.Get("/orders/{id}/attachments", h.listAttachments)
	})
}

type lineItemRequest struct {
	ProductID *int64  `json:"productId"`
	ServiceID *int64  `json:"serviceId"`
	Name      string  `json:"name" validate:"required,max=200"`
	Detail    string  `json:"detail"`
	Quantity  int     `json:"quantity" validate:"gte=0"`
	Value     float64 `json:"value" validate:"gte=0"`
}

type paymentRequest struct {
	Amount     float64    `json:"amount"`
	Method     string     `json:"method"`
	Status     string     `json:"status"`
	PaidAt     *time.Time `json:"paidAt"`
	ReceiptURL string     `json:"receiptUrl"`
}

func (p paymentRequest) input() PaymentInput {
	in := PaymentInput{
		Amount:     p.Amount,
		Method:     p.Method,
		Status:     p.Status,
		ReceiptURL: p.ReceiptURL,
	}
	if p.PaidAt != nil {
		in.PaidAt = *p.PaidAt
	}
	return in
}

type createOrderRequest struct {
	UserID         *int64            `json:"userId"`
	CustomerName   string            `json:"customerName" validate:"required,max=200"`
	CustomerEmail  string            `json:"customerEmail" validate:"required,email"`
	CustomerPhone  string            `json:"customerPhone"`
	StartedAt      *time.Time        `json:"startedAt"`
	Items          []lineItemRequest `json:"items" validate:"required,min=1,dive"`
	InitialPayment *paymentRequest   `json:"initialPayment"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type attachmentRequest struct {
	FileName    string `json:"fileName" validate:"required,max=300"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"gte=0"`
	URL         string `json:"url" validate:"required,max=1000"`
}

// orderView is the customer-facing order shape with formatted money and
// the production countdown.
type orderView struct {
	Order
	Totals         Totals        `json:"totals"`
	FormattedTotal string        `json:"formattedTotal"`
	DaysLeft       *int          `json:"productionDaysLeft,omitempty"`
	PaymentTrail   []paymentView `json:"paymentTrail,omitempty"`
}

// paymentView pairs a payment with the balance left once it and every
// earlier approved payment are applied.
type paymentView struct {
	Payment
	RemainingAfter float64 `json:"remainingAfter"`
}

func (h *Handler) view(o Order) orderView {
	totals := ComputeTotals(o.Items, o.Payments)
	v := orderView{
		Order:          o,
		Totals:         totals,
		FormattedTotal: money.FormatCOP(o.Total),
	}
	running := totals.Total
	for _, p := range o.Payments {
		if approvedPaymentStatus(p.Status) {
			running -= p.Amount
		}
		v.PaymentTrail = append(v.PaymentTrail, paymentView{Payment: p, RemainingAfter: running})
	}
	if days, ok := ProductionDaysLeft(o, time.Now()); ok {
		v.DaysLeft = &days
	}
	return v
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

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	in := CreateInput{
		UserID:        req.UserID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	}
	if req.StartedAt != nil {
		in.StartedAt = *req.StartedAt
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, LineItemInput(it))
	}
	if req.InitialPayment != nil {
		p := req.InitialPayment.input()
		in.InitialPayment = &p
	}
	o, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("create order", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "order": h.view(o)})
}

func (h *Handler) createMine(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	var req createOrderRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	in := CreateInput{
		UserID:        &userID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, LineItemInput(it))
	}
	if req.InitialPayment != nil {
		p := req.InitialPayment.input()
		in.InitialPayment = &p
	}
	o, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "order": h.view(o)})
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListOpen(r.Context())
	if err != nil {
		h.logger.Error("list orders", "error", err)
		httpx.RespondError(w, err)
		return
	}
	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, h.view(o))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "orders": views})
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	list, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, h.view(o))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "orders": views})
}

// get serves the order detail. Staff with the orders grant read any
// order; customers only reach their own.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	staff, err := h.perms.Has(r.Context(), userID, "orders", "manage")
	if err != nil {
		h.logger.Error("order access check", "error", err, "user_id", userID)
		httpx.Problem(w, http.StatusInternalServerError, "permission check failed")
		return
	}
	var o Order
	if staff {
		o, _, err = h.service.Get(r.Context(), id)
	} else {
		o, _, err = h.service.GetOwned(r.Context(), id, userID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "order": h.view(o)})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if !h.decodeValid(r, w, &req) {
		return
	}
	if err := h.service.SetStatus(r.Context(), id, req.Status); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req paymentRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	o, err := h.service.AddPayment(r.Context(), id, req.input())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "order": h.view(o)})
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	paymentID, err := idParam(r, "paymentId")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	var req paymentRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	o, err := h.service.UpdatePayment(r.Context(), id, paymentID, req.input())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "order": h.view(o)})
}

func (h *Handler) removePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	paymentID, err := idParam(r, "paymentId")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	o, err := h.service.RemovePayment(r.Context(), id, paymentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "order": h.view(o)})
}

// receiptUpload pulls the uploaded receipt image out of the multipart
// form.
func receiptUpload(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes))
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}

func (h *Handler) ocrPreview(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	image, contentType, err := receiptUpload(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	preview, err := h.service.PreviewReceipt(r.Context(), id, image, contentType)
	if err != nil {
		h.logger.Warn("ocr preview failed", "order_id", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "preview": preview})
}

func (h *Handler) ocrSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req struct {
		Amount     float64 `json:"amount"`
		ReceiptURL string  `json:"receiptUrl"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payment, err := h.service.SubmitReceipt(r.Context(), id, req.Amount, req.ReceiptURL)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "payment": payment})
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	var req reviewRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	review, err := h.service.AddReview(r.Context(), id, userID, req.Rating, req.Comment)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "review": review})
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	reviews, err := h.service.Reviews(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if reviews == nil {
		reviews = []Review{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "reviews": reviews})
}

func (h *Handler) createAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req attachmentRequest
	if !h.decodeValid(r, w, &req) {
		return
	}
	att, err := h.service.AddAttachment(r.Context(), Attachment{
		OrderID:     id,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		URL:         req.URL,
		UploadedBy:  shared.UserIDFromContext(r.Context()),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true, "attachment": att})
}

func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid order id")
		return
	}
	atts, err := h.service.Attachments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if atts == nil {
		atts = []Attachment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "attachments": atts})
}
