package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/shared"
)

// Service implements order flows on top of the repository and the money
// engines.
type Service struct {
	repo      Repository
	extractor TextExtractor
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, extractor TextExtractor, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

// LineItemInput describes one charged line on order creation.
type LineItemInput struct {
	ProductID *int64
	ServiceID *int64
	Name      string
	Detail    string
	Quantity  int
	Value     float64
}

// PaymentInput describes a payment to record.
type PaymentInput struct {
	Amount     float64
	Method     string
	Status     string
	PaidAt     time.Time
	ReceiptURL string
}

// CreateInput describes a new order.
type CreateInput struct {
	UserID         *int64
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	StartedAt      time.Time
	Items          []LineItemInput
	InitialPayment *PaymentInput
}

// Create builds an order from line items, records any initial payment,
// and derives the status before persisting.
func (s *Service) Create(ctx context.Context, in CreateInput) (Order, error) {
	if len(in.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order needs at least one item", httpx.ErrValidation)
	}
	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = s.now()
	}
	o := Order{
		UserID:        in.UserID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		StartedAt:     startedAt,
	}
	for _, it := range in.Items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		o.Items = append(o.Items, LineItem{
			ProductID: it.ProductID,
			ServiceID: it.ServiceID,
			Name:      it.Name,
			Detail:    it.Detail,
			Quantity:  qty,
			Value:     it.Value,
		})
	}
	if in.InitialPayment != nil && in.InitialPayment.Amount > 0 {
		p := Payment{
			Amount:     in.InitialPayment.Amount,
			Method:     in.InitialPayment.Method,
			Status:     in.InitialPayment.Status,
			PaidAt:     in.InitialPayment.PaidAt,
			ReceiptURL: in.InitialPayment.ReceiptURL,
		}
		if p.Status == "" {
			p.Status = PaymentConfirmed
		}
		if p.PaidAt.IsZero() {
			p.PaidAt = startedAt
		}
		o.Payments = append(o.Payments, p)
	}

	applyStatus(&o, ComputeTotals(o.Items, o.Payments), s.now())
	if err := s.repo.Create(ctx, &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Get loads an order with its fresh totals.
func (s *Service) Get(ctx context.Context, id int64) (Order, Totals, error) {
	o, err := s.repo.Find(ctx, id)
	if err != nil {
		return Order{}, Totals{}, err
	}
	return o, ComputeTotals(o.Items, o.Payments), nil
}

// GetOwned loads an order and verifies ownership.
func (s *Service) GetOwned(ctx context.Context, id, userID int64) (Order, Totals, error) {
	o, totals, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, Totals{}, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return Order{}, Totals{}, fmt.Errorf("%w: order belongs to another customer", httpx.ErrForbidden)
	}
	return o, totals, nil
}

// ListOpen returns orders still owing money, newest first. The admin
// work queue hides settled orders.
func (s *Service) ListOpen(ctx context.Context) ([]Order, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]Order, 0, len(all))
	for _, o := range all {
		if o.Status == StatusCompleted {
			continue
		}
		open = append(open, o)
	}
	return open, nil
}

// ListMine returns the user's orders, newest first.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SetStatus applies an admin status override.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	switch status {
	case StatusPending, StatusPartialDeposit, StatusInProgress, StatusCompleted, StatusCancelled:
	default:
		return fmt.Errorf("%w: unknown order status %q", httpx.ErrValidation, status)
	}
	return s.repo.SetStatus(ctx, id, status)
}

// AddPayment records a payment and recomputes the order's derived state.
func (s *Service) AddPayment(ctx context.Context, orderID int64, in PaymentInput) (Order, error) {
	if in.Amount <= 0 {
		return Order{}, fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
	}
	status := in.Status
	if status == "" {
		status = PaymentPending
	}
	return s.mutate(ctx, orderID, func(o *Order) error {
		o.Payments = append(o.Payments, Payment{
			Amount:     in.Amount,
			Method:     in.Method,
			Status:     status,
			PaidAt:     in.PaidAt,
			ReceiptURL: in.ReceiptURL,
		})
		return nil
	})
}

// UpdatePayment mutates an existing payment in place.
func (s *Service) UpdatePayment(ctx context.Context, orderID, paymentID int64, in PaymentInput) (Order, error) {
	return s.mutate(ctx, orderID, func(o *Order) error {
		for i := range o.Payments {
			if o.Payments[i].ID != paymentID {
				continue
			}
			if in.Amount > 0 {
				o.Payments[i].Amount = in.Amount
			}
			if in.Method != "" {
				o.Payments[i].Method = in.Method
			}
			if in.Status != "" {
				o.Payments[i].Status = in.Status
			}
			if !in.PaidAt.IsZero() {
				o.Payments[i].PaidAt = in.PaidAt
			}
			return nil
		}
		return fmt.Errorf("%w: payment %d not found on order %d", httpx.ErrNotFound, paymentID, orderID)
	})
}

// RemovePayment deletes a payment and recomputes the order.
func (s *Service) RemovePayment(ctx context.Context, orderID, paymentID int64) (Order, error) {
	return s.mutate(ctx, orderID, func(o *Order) error {
		for i := range o.Payments {
			if o.Payments[i].ID == paymentID {
				o.Payments = append(o.Payments[:i], o.Payments[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: payment %d not found on order %d", httpx.ErrNotFound, paymentID, orderID)
	})
}

func (s *Service) mutate(ctx context.Context, orderID int64, fn func(o *Order) error) (Order, error) {
	return s.repo.MutatePayments(ctx, orderID, func(o *Order) error {
		if err := fn(o); err != nil {
			return err
		}
		applyStatus(o, ComputeTotals(o.Items, o.Payments), s.now())
		return nil
	})
}

// ReceiptPreview is the OCR dry-run result. Nothing is persisted.
type ReceiptPreview struct {
	DetectedAmount float64 `json:"detectedAmount"`
	Current        Totals  `json:"current"`
	Projected      struct {
		Paid           float64 `json:"paid"`
		RestanteAfter  float64 `json:"restanteAfter"`
		WouldStartWork bool    `json:"wouldStartWork"`
	} `json:"projected"`
}

// PreviewReceipt runs OCR over a receipt image and reports what
// recording the detected amount would do to the order. Returns 422-class
// errors when no usable amount is found.
func (s *Service) PreviewReceipt(ctx context.Context, orderID int64, image []byte, contentType string) (ReceiptPreview, error) {
	o, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return ReceiptPreview{}, err
	}
	text, err := s.extractor.ExtractText(ctx, image, contentType)
	if err != nil {
		return ReceiptPreview{}, fmt.Errorf("extract receipt text: %w", err)
	}
	amount, ok := ParseAmount(text)
	if !ok {
		return ReceiptPreview{}, fmt.Errorf("%w: no amount detected on receipt", httpx.ErrUnprocessable)
	}

	var preview ReceiptPreview
	preview.DetectedAmount = amount
	preview.Current = ComputeTotals(o.Items, o.Payments)
	preview.Projected.Paid = preview.Current.Paid + amount
	preview.Projected.RestanteAfter = preview.Current.Total - preview.Projected.Paid
	preview.Projected.WouldStartWork = preview.Current.Total > 0 &&
		preview.Projected.Paid >= depositThreshold*preview.Current.Total
	return preview, nil
}

// SubmitReceipt records a pending payment for a previewed amount. The
// payment stays pendiente until an admin approves it, so totals do not
// move yet.
func (s *Service) SubmitReceipt(ctx context.Context, orderID int64, amount float64, receiptURL string) (Payment, error) {
	if amount <= 0 {
		return Payment{}, fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
	}
	o, err := s.mutate(ctx, orderID, func(o *Order) error {
		o.Payments = append(o.Payments, Payment{
			Amount:     amount,
			Method:     "transferencia",
			Status:     PaymentPending,
			PaidAt:     s.now(),
			ReceiptURL: receiptURL,
		})
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return o.Payments[len(o.Payments)-1], nil
}

// AddReview records a customer rating. Only the owner may review, and
// only once per order.
func (s *Service) AddReview(ctx context.Context, orderID, userID int64, rating int, comment string) (Review, error) {
	if rating < 1 || rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", httpx.ErrValidation)
	}
	o, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return Review{}, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return Review{}, fmt.Errorf("%w: order belongs to another customer", httpx.ErrForbidden)
	}
	rev := Review{OrderID: orderID, UserID: userID, Rating: rating, Comment: comment}
	if err := s.repo.CreateReview(ctx, &rev); err != nil {
		if errors.Is(err, ErrDuplicateReview) {
			return Review{}, fmt.Errorf("%w: review already submitted", httpx.ErrConflict)
		}
		return Review{}, err
	}
	return rev, nil
}

// Reviews lists an order's reviews.
func (s *Service) Reviews(ctx context.Context, orderID int64) ([]Review, error) {
	return s.repo.ListReviews(ctx, orderID)
}

// AddAttachment records uploaded file metadata on an order.
func (s *Service) AddAttachment(ctx context.Context, att Attachment) (Attachment, error) {
	if _, err := s.repo.Find(ctx, att.OrderID); err != nil {
		return Attachment{}, err
	}
	if err := s.repo.CreateAttachment(ctx, &att); err != nil {
		return Attachment{}, err
	}
	return att, nil
}

// Attachments lists an order's attachments.
func (s *Service) Attachments(ctx context.Context, orderID int64) ([]Attachment, error) {
	return s.repo.ListAttachments(ctx, orderID)
}

// HasRecentFor reports whether the user has an order created at or
// after the given instant.
func (s *Service) HasRecentFor(ctx context.Context, userID int64, since time.Time) (bool, error) {
	_, err := s.repo.FindRecentByUser(ctx, userID, since)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
