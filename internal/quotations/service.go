package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/maderia/maderia/internal/mail"
	"github.com/maderia/maderia/internal/orders"
	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/platform/money"
	"github.com/maderia/maderia/internal/shared"
	"github.com/maderia/maderia/internal/view"
)

// duplicateOrderWindow is the trailing window the decision flow checks
// before creating an order. A matching order inside it means the user
// double-submitted; this is a heuristic, not a strong guarantee.
const duplicateOrderWindow = 5 * time.Minute

// OrderPlacer creates orders out of accepted quotations.
type OrderPlacer interface {
	Create(ctx context.Context, in orders.CreateInput) (orders.Order, error)
	HasRecentFor(ctx context.Context, userID int64, since time.Time) (bool, error)
}

// UserDirectory resolves contact details for notification mail.
type UserDirectory interface {
	Contact(ctx context.Context, userID int64) (name, email string, err error)
}

// Service implements the quotation lifecycle.
type Service struct {
	repo             Repository
	orders           OrderPlacer
	users            UserDirectory
	templates        *view.Engine
	mail             mail.Sender
	logger           *slog.Logger
	notifyTo         string
	defaultServiceID int64
	now              func() time.Time
}

func NewService(repo Repository, placer OrderPlacer, users UserDirectory,
	templates *view.Engine, sender mail.Sender, logger *slog.Logger,
	notifyTo string, defaultServiceID int64) *Service {
	return &Service{
		repo:             repo,
		orders:           placer,
		users:            users,
		templates:        templates,
		mail:             sender,
		logger:           logger,
		notifyTo:         notifyTo,
		defaultServiceID: defaultServiceID,
		now:              time.Now,
	}
}

// GetOrCreateCart returns the user's active cart, creating an empty one
// when none exists.
func (s *Service) GetOrCreateCart(ctx context.Context, userID int64) (Quotation, error) {
	cart, err := s.repo.FindCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Quotation{}, err
	}
	cart = Quotation{UserID: userID, Status: StatusCart}
	if err := s.repo.Create(ctx, &cart); err != nil {
		if errors.Is(err, ErrActiveCartExists) {
			// Lost the race against another request; the cart exists now.
			return s.repo.FindCart(ctx, userID)
		}
		return Quotation{}, err
	}
	return cart, nil
}

// AddCartItem adds a catalog product to the cart, merging quantity into
// an existing line with the same product, color and size.
func (s *Service) AddCartItem(ctx context.Context, userID, productID int64, quantity int, color, size string) (Quotation, error) {
	if productID <= 0 {
		return Quotation{}, fmt.Errorf("%w: valid productId is required", httpx.ErrValidation)
	}
	if color == "" {
		return Quotation{}, fmt.Errorf("%w: color is required", httpx.ErrValidation)
	}
	if quantity < 1 {
		quantity = 1
	}
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return Quotation{}, err
	}

	for _, it := range cart.Items {
		if !it.IsCustom && it.ProductID != nil && *it.ProductID == productID &&
			it.Color == color && it.Size == size {
			it.Quantity += quantity
			if err := s.repo.UpdateItem(ctx, it); err != nil {
				return Quotation{}, err
			}
			return s.repo.Find(ctx, cart.ID)
		}
	}

	item := Item{
		QuotationID: cart.ID,
		ProductID:   &productID,
		Quantity:    quantity,
		Color:       color,
		Size:        size,
		ItemStatus:  ItemNormal,
	}
	if err := s.repo.InsertItem(ctx, &item); err != nil {
		return Quotation{}, err
	}
	return s.repo.Find(ctx, cart.ID)
}

// CustomItemInput describes a made-to-order piece.
type CustomItemInput struct {
	Name           string
	Description    string
	WoodType       string
	ReferenceImage string
	Quantity       int
	Color          string
	Size           string
}

// AddCustomCartItem adds a custom piece to the cart. Custom lines start
// unpriced and wait for the admin quote.
func (s *Service) AddCustomCartItem(ctx context.Context, userID int64, in CustomItemInput) (Quotation, error) {
	if in.Name == "" || in.Description == "" {
		return Quotation{}, fmt.Errorf("%w: name and description are required", httpx.ErrValidation)
	}
	if in.Color == "" {
		return Quotation{}, fmt.Errorf("%w: color is required", httpx.ErrValidation)
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}
	if in.WoodType == "" {
		in.WoodType = "Por definir"
	}
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return Quotation{}, err
	}
	item := Item{
		QuotationID:       cart.ID,
		IsCustom:          true,
		CustomName:        in.Name,
		CustomDescription: in.Description,
		WoodType:          in.WoodType,
		ReferenceImage:    in.ReferenceImage,
		Quantity:          in.Quantity,
		Color:             in.Color,
		Size:              in.Size,
		ItemStatus:        ItemPendingQuote,
	}
	if err := s.repo.InsertItem(ctx, &item); err != nil {
		return Quotation{}, err
	}
	return s.repo.Find(ctx, cart.ID)
}

// UpdateCartItemQuantity changes one line's quantity on the active cart.
func (s *Service) UpdateCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (Quotation, error) {
	if itemID <= 0 || quantity < 1 {
		return Quotation{}, fmt.Errorf("%w: valid itemId and quantity are required", httpx.ErrValidation)
	}
	cart, err := s.repo.FindCart(ctx, userID)
	if err != nil {
		return Quotation{}, err
	}
	for _, it := range cart.Items {
		if it.ID == itemID {
			it.Quantity = quantity
			if err := s.repo.UpdateItem(ctx, it); err != nil {
				return Quotation{}, err
			}
			return s.repo.Find(ctx, cart.ID)
		}
	}
	return Quotation{}, fmt.Errorf("%w: item not found in cart", httpx.ErrNotFound)
}

// RemoveCartItem removes one line from the active cart.
func (s *Service) RemoveCartItem(ctx context.Context, userID, itemID int64) (Quotation, error) {
	cart, err := s.repo.FindCart(ctx, userID)
	if err != nil {
		return Quotation{}, err
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return Quotation{}, err
	}
	return s.repo.Find(ctx, cart.ID)
}

// SubmitCart turns the active cart into a quotation request. An empty
// cart cannot be submitted.
func (s *Service) SubmitCart(ctx context.Context, userID int64) (Quotation, error) {
	cart, err := s.repo.FindCart(ctx, userID)
	if err != nil {
		return Quotation{}, err
	}
	return s.submit(ctx, cart)
}

// Submit requests a quote for an owned quotation by id.
func (s *Service) Submit(ctx context.Context, quotationID, userID int64) (Quotation, error) {
	q, err := s.findOwned(ctx, quotationID, userID)
	if err != nil {
		return Quotation{}, err
	}
	return s.submit(ctx, q)
}

func (s *Service) submit(ctx context.Context, q Quotation) (Quotation, error) {
	if len(q.Items) == 0 {
		return Quotation{}, fmt.Errorf("%w: cannot submit empty quotation", httpx.ErrValidation)
	}
	if err := s.repo.SetStatus(ctx, q.ID, StatusRequested); err != nil {
		return Quotation{}, err
	}
	return s.repo.Find(ctx, q.ID)
}

// QuickCreate builds a Solicitada quotation in one call, skipping the
// cart stage.
func (s *Service) QuickCreate(ctx context.Context, userID int64, items []Item, adminNotes string) (Quotation, error) {
	if len(items) == 0 {
		return Quotation{}, fmt.Errorf("%w: items array is required", httpx.ErrValidation)
	}
	for i := range items {
		if items[i].Quantity < 1 {
			items[i].Quantity = 1
		}
		if items[i].ItemStatus == "" {
			if items[i].IsCustom {
				items[i].ItemStatus = ItemPendingQuote
			} else {
				items[i].ItemStatus = ItemNormal
			}
		}
	}
	q := Quotation{UserID: userID, Status: StatusRequested, Items: items, AdminNotes: adminNotes}
	if err := s.repo.Create(ctx, &q); err != nil {
		return Quotation{}, err
	}
	return q, nil
}

func (s *Service) findOwned(ctx context.Context, quotationID, userID int64) (Quotation, error) {
	q, err := s.repo.Find(ctx, quotationID)
	if err != nil {
		return Quotation{}, err
	}
	if q.UserID != userID {
		return Quotation{}, fmt.Errorf("%w: quotation belongs to another user", httpx.ErrForbidden)
	}
	return q, nil
}

// AddItem appends a line to an owned quotation.
func (s *Service) AddItem(ctx context.Context, quotationID, userID int64, item Item) (Quotation, error) {
	q, err := s.findOwned(ctx, quotationID, userID)
	if err != nil {
		return Quotation{}, err
	}
	if item.IsCustom {
		if item.CustomName == "" || item.CustomDescription == "" {
			return Quotation{}, fmt.Errorf("%w: custom items require name and description", httpx.ErrValidation)
		}
		if item.WoodType == "" {
			item.WoodType = "Por definir"
		}
		item.ItemStatus = ItemPendingQuote
	} else {
		if item.ProductID == nil || *item.ProductID <= 0 {
			return Quotation{}, fmt.Errorf("%w: valid productId is required", httpx.ErrValidation)
		}
		item.ItemStatus = ItemNormal
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	item.QuotationID = q.ID
	item.Price = 0
	if err := s.repo.InsertItem(ctx, &item); err != nil {
		return Quotation{}, err
	}
	return s.repo.Find(ctx, q.ID)
}

// ItemPatch carries optional item updates.
type ItemPatch struct {
	Quantity   *int
	Color      *string
	Size       *string
	Price      *float64
	AdminNotes *string
}

// UpdateItem patches a line on an owned quotation.
func (s *Service) UpdateItem(ctx context.Context, quotationID, userID, itemID int64, patch ItemPatch) (Quotation, error) {
	q, err := s.findOwned(ctx, quotationID, userID)
	if err != nil {
		return Quotation{}, err
	}
	for _, it := range q.Items {
		if it.ID != itemID {
			continue
		}
		if patch.Quantity != nil {
			it.Quantity = *patch.Quantity
		}
		if patch.Color != nil {
			it.Color = *patch.Color
		}
		if patch.Size != nil {
			it.Size = *patch.Size
		}
		if patch.Price != nil {
			it.Price = *patch.Price
		}
		if patch.AdminNotes != nil {
			it.AdminNotes = *patch.AdminNotes
		}
		if err := s.repo.UpdateItem(ctx, it); err != nil {
			return Quotation{}, err
		}
		return s.repo.Find(ctx, q.ID)
	}
	return Quotation{}, fmt.Errorf("%w: item not found", httpx.ErrNotFound)
}

// RemoveItem deletes a line on an owned quotation.
func (s *Service) RemoveItem(ctx context.Context, quotationID, userID, itemID int64) (Quotation, error) {
	q, err := s.findOwned(ctx, quotationID, userID)
	if err != nil {
		return Quotation{}, err
	}
	if err := s.repo.DeleteItem(ctx, q.ID, itemID); err != nil {
		return Quotation{}, err
	}
	return s.repo.Find(ctx, q.ID)
}

// QuoteItemInput prices one line during the admin quote.
type QuoteItemInput struct {
	ItemID     int64
	Price      *float64
	AdminNotes *string
}

// SetQuote applies admin pricing: item prices and notes, custom lines
// move pending_quote to quoted, the estimate is provided or recomputed,
// and the quotation becomes Cotizada.
func (s *Service) SetQuote(ctx context.Context, quotationID int64, items []QuoteItemInput, totalEstimate *float64, adminNotes *string) (Quotation, error) {
	q, err := s.repo.Find(ctx, quotationID)
	if err != nil {
		return Quotation{}, err
	}

	byID := make(map[int64]QuoteItemInput, len(items))
	for _, in := range items {
		byID[in.ItemID] = in
	}
	for i := range q.Items {
		in, ok := byID[q.Items[i].ID]
		if !ok {
			continue
		}
		if in.Price != nil {
			q.Items[i].Price = *in.Price
		}
		if in.AdminNotes != nil {
			q.Items[i].AdminNotes = *in.AdminNotes
		}
		if q.Items[i].IsCustom && q.Items[i].ItemStatus == ItemPendingQuote {
			q.Items[i].ItemStatus = ItemQuoted
		}
	}

	if totalEstimate != nil {
		q.TotalEstimate = *totalEstimate
	} else {
		q.TotalEstimate = estimate(q.Items)
	}
	if adminNotes != nil {
		q.AdminNotes = *adminNotes
	}
	q.Status = StatusQuoted

	if err := s.repo.UpdateQuote(ctx, &q); err != nil {
		return Quotation{}, err
	}
	return q, nil
}

// DecisionResult reports what the decision produced.
type DecisionResult struct {
	QuotationID int64  `json:"quotationId"`
	Deleted     bool   `json:"deleted"`
	OrderID     *int64 `json:"orderId,omitempty"`
}

// Decide applies the owner's accept/reject decision. Accepting derives
// an order from the quoted lines unless one was just created for the
// same user; either way the quotation and its chat thread are deleted
// afterwards and the admin is notified by mail.
func (s *Service) Decide(ctx context.Context, quotationID, userID int64, decision string) (DecisionResult, error) {
	if decision != "accepted" && decision != "rejected" {
		return DecisionResult{}, fmt.Errorf("%w: decision must be accepted|rejected", httpx.ErrValidation)
	}
	q, err := s.repo.Find(ctx, quotationID)
	if err != nil {
		return DecisionResult{}, err
	}
	if q.UserID != userID {
		return DecisionResult{}, fmt.Errorf("%w: quotation belongs to another user", httpx.ErrForbidden)
	}

	result := DecisionResult{QuotationID: q.ID}
	if decision == "accepted" {
		orderID, err := s.placeOrder(ctx, q)
		if err != nil {
			return DecisionResult{}, err
		}
		result.OrderID = orderID
	}

	s.notifyDecision(ctx, q, decision)

	if err := s.repo.Delete(ctx, q.ID); err != nil {
		return DecisionResult{}, err
	}
	result.Deleted = true
	return result, nil
}

// placeOrder creates the derived order unless the duplicate guard finds
// one created inside the trailing window. Returns the new order id, or
// nil when the guard suppressed creation.
func (s *Service) placeOrder(ctx context.Context, q Quotation) (*int64, error) {
	recent, err := s.orders.HasRecentFor(ctx, q.UserID, s.now().Add(-duplicateOrderWindow))
	if err != nil {
		return nil, err
	}
	if recent {
		s.logger.Info("duplicate order suppressed", "quotation_id", q.ID, "user_id", q.UserID)
		return nil, nil
	}

	name, email, err := s.users.Contact(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	in := orders.CreateInput{
		UserID:        &q.UserID,
		CustomerName:  name,
		CustomerEmail: email,
		StartedAt:     s.now(),
	}
	for _, it := range q.Items {
		detail := it.AdminNotes
		if detail == "" {
			detail = "Sin notas del administrador"
		}
		lineName := it.CustomName
		if lineName == "" {
			lineName = "Artículo cotizado"
		}
		line := orders.LineItemInput{
			ProductID: it.ProductID,
			Name:      lineName,
			Detail:    detail,
			Quantity:  it.Quantity,
			Value:     it.Price * float64(it.Quantity),
		}
		if line.ProductID == nil {
			serviceID := s.defaultServiceID
			line.ServiceID = &serviceID
		}
		in.Items = append(in.Items, line)
	}

	o, err := s.orders.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return &o.ID, nil
}

func (s *Service) notifyDecision(ctx context.Context, q Quotation, decision string) {
	if s.notifyTo == "" {
		return
	}
	name, email, err := s.users.Contact(ctx, q.UserID)
	if err != nil {
		s.logger.Warn("resolve customer contact", "quotation_id", q.ID, "error", err)
		name, email = "Cliente", "desconocido"
	}
	verb := "RECHAZÓ"
	orderBlock := "No se generó pedido."
	if decision == "accepted" {
		verb = "ACEPTÓ"
		orderBlock = "Se generó el pedido derivado de la cotización."
	}
	html, err := s.templates.Render("quotation-decision", map[string]string{
		"USER_NAME":      name,
		"USER_EMAIL":     email,
		"QUOTATION_ID":   strconv.FormatInt(q.ID, 10),
		"DECISION":       decision,
		"TOTAL_ESTIMATE": money.FormatCOP(q.TotalEstimate),
		"ORDER_BLOCK":    orderBlock,
		"YEAR":           strconv.Itoa(s.now().Year()),
	})
	if err != nil {
		s.logger.Error("render decision notice", "quotation_id", q.ID, "error", err)
		return
	}
	subject := fmt.Sprintf("Decisión del cliente: %s la cotización", verb)
	if err := s.mail.Send(ctx, s.notifyTo, subject, html); err != nil {
		s.logger.Error("decision notice email failed", "quotation_id", q.ID, "error", err)
	}
}

// ListMine returns the user's quotations, newest first.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]Quotation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListAll returns a paginated admin listing, optionally filtered by
// status.
func (s *Service) ListAll(ctx context.Context, status string, page, limit int) ([]Quotation, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListAll(ctx, status, page, limit)
}

// Get loads one quotation.
func (s *Service) Get(ctx context.Context, id int64) (Quotation, error) {
	return s.repo.Find(ctx, id)
}

// PostMessage appends to the quotation chat thread.
func (s *Service) PostMessage(ctx context.Context, quotationID, senderID int64, body string) (Message, error) {
	if body == "" {
		return Message{}, fmt.Errorf("%w: message body is required", httpx.ErrValidation)
	}
	if _, err := s.repo.Find(ctx, quotationID); err != nil {
		return Message{}, err
	}
	msg := Message{QuotationID: quotationID, SenderID: senderID, Body: body}
	if err := s.repo.InsertMessage(ctx, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Messages lists the quotation chat thread.
func (s *Service) Messages(ctx context.Context, quotationID int64) ([]Message, error) {
	return s.repo.ListMessages(ctx, quotationID)
}
