package orders

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/shared"
)

type memRepo struct {
	nextID   int64
	orders   map[int64]Order
	reviews  map[int64][]Review
	attached map[int64][]Attachment
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:   map[int64]Order{},
		reviews:  map[int64][]Review{},
		attached: map[int64][]Attachment{},
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) Create(_ context.Context, o *Order) error {
	o.ID = m.id()
	o.Version = 1
	o.CreatedAt = time.Now()
	for i := range o.Items {
		o.Items[i].ID = m.id()
		o.Items[i].OrderID = o.ID
	}
	for i := range o.Payments {
		o.Payments[i].ID = m.id()
		o.Payments[i].OrderID = o.ID
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *memRepo) Find(_ context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (m *memRepo) List(_ context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID int64) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) ListStartedBetween(_ context.Context, from, to time.Time) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if !o.StartedAt.Before(from) && o.StartedAt.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) SetStatus(_ context.Context, id int64, status string) error {
	o, ok := m.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.Status = status
	m.orders[id] = o
	return nil
}

func (m *memRepo) FindRecentByUser(_ context.Context, userID int64, since time.Time) (Order, error) {
	for _, o := range m.orders {
		if o.UserID != nil && *o.UserID == userID && !o.CreatedAt.Before(since) {
			return o, nil
		}
	}
	return Order{}, shared.ErrNotFound
}

func (m *memRepo) MutatePayments(_ context.Context, orderID int64, fn func(o *Order) error) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	if err := fn(&o); err != nil {
		return Order{}, err
	}
	for i := range o.Payments {
		if o.Payments[i].ID == 0 {
			o.Payments[i].ID = m.id()
			o.Payments[i].OrderID = orderID
		}
	}
	o.Version++
	m.orders[orderID] = o
	return o, nil
}

func (m *memRepo) CreateReview(_ context.Context, rev *Review) error {
	for _, existing := range m.reviews[rev.OrderID] {
		if existing.UserID == rev.UserID {
			return ErrDuplicateReview
		}
	}
	rev.ID = m.id()
	rev.CreatedAt = time.Now()
	m.reviews[rev.OrderID] = append(m.reviews[rev.OrderID], *rev)
	return nil
}

func (m *memRepo) ListReviews(_ context.Context, orderID int64) ([]Review, error) {
	return m.reviews[orderID], nil
}

func (m *memRepo) CreateAttachment(_ context.Context, att *Attachment) error {
	att.ID = m.id()
	att.CreatedAt = time.Now()
	m.attached[att.OrderID] = append(m.attached[att.OrderID], *att)
	return nil
}

func (m *memRepo) ListAttachments(_ context.Context, orderID int64) ([]Attachment, error) {
	return m.attached[orderID], nil
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(context.Context, []byte, string) (string, error) {
	return s.text, s.err
}

func newTestService(repo Repository, ex TextExtractor) *Service {
	return NewService(repo, ex, slog.New(slog.DiscardHandler))
}

func TestCreateWithInitialDeposit(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, stubExtractor{})

	o, err := svc.Create(context.Background(), CreateInput{
		CustomerName:  "Marta Lopez",
		CustomerEmail: "marta@example.com",
		Items: []LineItemInput{
			{Name: "Escritorio nogal", Quantity: 1, Value: 900000},
		},
		InitialPayment: &PaymentInput{Amount: 300000, Method: "offline_cash"},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusInProgress, o.Status, "a 30 percent deposit starts production")
	require.NotNil(t, o.ProductionStartedAt)
	assert.Equal(t, 900000.0, o.Total)
	assert.Equal(t, 300000.0, o.Paid)
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	svc := newTestService(newMemRepo(), stubExtractor{})
	_, err := svc.Create(context.Background(), CreateInput{CustomerName: "X", CustomerEmail: "x@example.com"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestPaymentLifecycleDerivesStatus(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, stubExtractor{})
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{
		CustomerName:  "Pedro Gil",
		CustomerEmail: "pedro@example.com",
		Items:         []LineItemInput{{Name: "Biblioteca", Value: 1000}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)

	o, err = svc.AddPayment(ctx, o.ID, PaymentInput{Amount: 100, Status: PaymentApproved})
	require.NoError(t, err)
	assert.Equal(t, StatusPartialDeposit, o.Status)

	o, err = svc.AddPayment(ctx, o.ID, PaymentInput{Amount: 250, Status: PaymentApproved})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, o.Status)
	require.NotNil(t, o.ProductionStartedAt)
	stamped := *o.ProductionStartedAt

	o, err = svc.AddPayment(ctx, o.ID, PaymentInput{Amount: 650, Status: PaymentConfirmed})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, stamped, *o.ProductionStartedAt)
}

func TestPendingPaymentDoesNotMoveTotals(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, stubExtractor{})
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{
		CustomerName:  "Nora Ruiz",
		CustomerEmail: "nora@example.com",
		Items:         []LineItemInput{{Name: "Mesa centro", Value: 300}},
	})
	require.NoError(t, err)

	o, err = svc.AddPayment(ctx, o.ID, PaymentInput{Amount: 150})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Zero(t, o.Paid, "a pendiente payment is not counted until approved")
}

func TestPreviewReceipt(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, stubExtractor{text: "Transferencia exitosa valor $150"})
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{
		CustomerName:  "Julia Prado",
		CustomerEmail: "julia@example.com",
		Items:         []LineItemInput{{Name: "Cama doble", Value: 300}},
	})
	require.NoError(t, err)

	preview, err := svc.PreviewReceipt(ctx, o.ID, []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, 150.0, preview.DetectedAmount)
	assert.Equal(t, 300.0, preview.Current.Total)
	assert.Equal(t, 150.0, preview.Projected.RestanteAfter)
	assert.True(t, preview.Projected.WouldStartWork)

	stored, err := repo.Find(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Payments, "preview must not persist a payment")
}

func TestPreviewReceiptNoAmount(t *testing.T) {
	repo := newMemRepo()
	// Confusion normalization turns the o's into zeros; zero is not a
	// plausible amount, so nothing is detected.
	svc := newTestService(repo, stubExtractor{text: "sin montos aqui"})
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{
		CustomerName:  "Julia Prado",
		CustomerEmail: "julia@example.com",
		Items:         []LineItemInput{{Name: "Cama doble", Value: 300}},
	})
	require.NoError(t, err)

	_, err = svc.PreviewReceipt(ctx, o.ID, []byte("img"), "image/png")
	assert.ErrorIs(t, err, httpx.ErrUnprocessable)
}

func TestSubmitReceipt(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, stubExtractor{})
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{
		CustomerName:  "Julia Prado",
		CustomerEmail: "julia@example.com",
		Items:         []LineItemInput{{Name: "Cama doble", Value: 300}},
	})
	require.NoError(t, err)

	payment, err := svc.SubmitReceipt(ctx, o.ID, 150, "https://cdn.example.com/r.png")
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, payment.Status)
	assert.Equal(t, 150.0, payment.Amount)

	_, err = svc.SubmitReceipt(ctx, o.ID, 0, "")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	stored, err := repo.Find(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)
}

func TestReviewOncePerUser(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, stubExtractor{})
	ctx := context.Background()
	owner := int64(7)

	o, err := svc.Create(ctx, CreateInput{
		UserID:        &owner,
		CustomerName:  "Luisa Mora",
		CustomerEmail: "luisa@example.com",
		Items:         []LineItemInput{{Name: "Silla mecedora", Value: 100}},
	})
	require.NoError(t, err)

	_, err = svc.AddReview(ctx, o.ID, owner, 5, "excelente acabado")
	require.NoError(t, err)

	_, err = svc.AddReview(ctx, o.ID, owner, 4, "segundo intento")
	assert.ErrorIs(t, err, httpx.ErrConflict)

	reviews, err := svc.Reviews(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	_, err = svc.AddReview(ctx, o.ID, 99, 3, "")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.AddReview(ctx, o.ID, owner, 9, "")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}
