package quotations

import (
	"context"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maderia/maderia/internal/orders"
	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/shared"
	"github.com/maderia/maderia/internal/view"
)

type memRepo struct {
	nextID     int64
	nextItemID int64
	quotations map[int64]*Quotation
	messages   map[int64][]Message
}

func newMemRepo() *memRepo {
	return &memRepo{quotations: map[int64]*Quotation{}, messages: map[int64][]Message{}}
}

func (m *memRepo) Create(_ context.Context, q *Quotation) error {
	if q.Status == StatusCart {
		for _, existing := range m.quotations {
			if existing.UserID == q.UserID && existing.Status == StatusCart {
				return ErrActiveCartExists
			}
		}
	}
	m.nextID++
	q.ID = m.nextID
	q.CreatedAt = time.Now()
	for i := range q.Items {
		m.nextItemID++
		q.Items[i].ID = m.nextItemID
		q.Items[i].QuotationID = q.ID
	}
	cp := *q
	cp.Items = append([]Item(nil), q.Items...)
	m.quotations[q.ID] = &cp
	return nil
}

func (m *memRepo) Find(_ context.Context, id int64) (Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return Quotation{}, shared.ErrNotFound
	}
	cp := *q
	cp.Items = append([]Item(nil), q.Items...)
	return cp, nil
}

func (m *memRepo) FindCart(ctx context.Context, userID int64) (Quotation, error) {
	for id, q := range m.quotations {
		if q.UserID == userID && q.Status == StatusCart {
			return m.Find(ctx, id)
		}
	}
	return Quotation{}, shared.ErrNotFound
}

func (m *memRepo) ListByUser(_ context.Context, userID int64) ([]Quotation, error) {
	var out []Quotation
	for _, q := range m.quotations {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memRepo) ListAll(_ context.Context, status string, _, _ int) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range m.quotations {
		if status == "" || q.Status == status {
			out = append(out, *q)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) SetStatus(_ context.Context, id int64, status string) error {
	q, ok := m.quotations[id]
	if !ok {
		return shared.ErrNotFound
	}
	q.Status = status
	return nil
}

func (m *memRepo) UpdateQuote(_ context.Context, q *Quotation) error {
	if _, ok := m.quotations[q.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *q
	cp.Items = append([]Item(nil), q.Items...)
	m.quotations[q.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.quotations[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.quotations, id)
	delete(m.messages, id)
	return nil
}

func (m *memRepo) InsertItem(_ context.Context, item *Item) error {
	q, ok := m.quotations[item.QuotationID]
	if !ok {
		return shared.ErrNotFound
	}
	m.nextItemID++
	item.ID = m.nextItemID
	q.Items = append(q.Items, *item)
	return nil
}

func (m *memRepo) UpdateItem(_ context.Context, item Item) error {
	q, ok := m.quotations[item.QuotationID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range q.Items {
		if q.Items[i].ID == item.ID {
			q.Items[i] = item
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memRepo) DeleteItem(_ context.Context, quotationID, itemID int64) error {
	q, ok := m.quotations[quotationID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range q.Items {
		if q.Items[i].ID == itemID {
			q.Items = append(q.Items[:i], q.Items[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memRepo) InsertMessage(_ context.Context, msg *Message) error {
	m.nextItemID++
	msg.ID = m.nextItemID
	msg.CreatedAt = time.Now()
	m.messages[msg.QuotationID] = append(m.messages[msg.QuotationID], *msg)
	return nil
}

func (m *memRepo) ListMessages(_ context.Context, quotationID int64) ([]Message, error) {
	return m.messages[quotationID], nil
}

type stubPlacer struct {
	created []orders.CreateInput
	recent  bool
}

func (p *stubPlacer) Create(_ context.Context, in orders.CreateInput) (orders.Order, error) {
	p.created = append(p.created, in)
	return orders.Order{ID: int64(len(p.created))}, nil
}

func (p *stubPlacer) HasRecentFor(context.Context, int64, time.Time) (bool, error) {
	return p.recent, nil
}

type stubDirectory struct{}

func (stubDirectory) Contact(context.Context, int64) (string, string, error) {
	return "Marta Lopez", "marta@example.com", nil
}

type recordingSender struct {
	sent []string
}

func (r *recordingSender) Send(_ context.Context, to, _, _ string) error {
	r.sent = append(r.sent, to)
	return nil
}

func testEngine() *view.Engine {
	return view.NewEngineFS(fstest.MapFS{
		"templates/quotation-decision.html": {Data: []byte("{{USER_NAME}} {{DECISION}} #{{QUOTATION_ID}}")},
	})
}

func newTestService(repo Repository, placer *stubPlacer, sender *recordingSender) *Service {
	return NewService(repo, placer, stubDirectory{}, testEngine(), sender,
		slog.New(slog.DiscardHandler), "admin@maderia.local", 7)
}

func TestGetOrCreateCartIsIdempotent(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})

	first, err := svc.GetOrCreateCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCart, first.Status)

	second, err := svc.GetOrCreateCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestAddCartItemMergesSameVariant(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})
	ctx := context.Background()

	_, err := svc.AddCartItem(ctx, 1, 10, 2, "nogal", "120cm")
	require.NoError(t, err)
	cart, err := svc.AddCartItem(ctx, 1, 10, 3, "nogal", "120cm")
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	// Different color stays a separate line.
	cart, err = svc.AddCartItem(ctx, 1, 10, 1, "roble", "120cm")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestAddCartItemRequiresColor(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})
	_, err := svc.AddCartItem(context.Background(), 1, 10, 1, "", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAddCustomCartItemDefaults(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})

	cart, err := svc.AddCustomCartItem(context.Background(), 1, CustomItemInput{
		Name:        "Mesa de centro",
		Description: "Con cajón oculto",
		Color:       "nogal",
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	item := cart.Items[0]
	assert.True(t, item.IsCustom)
	assert.Equal(t, "Por definir", item.WoodType)
	assert.Equal(t, ItemPendingQuote, item.ItemStatus)
	assert.Equal(t, 1, item.Quantity)
}

func TestSubmitEmptyCartRejected(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})
	ctx := context.Background()

	_, err := svc.GetOrCreateCart(ctx, 1)
	require.NoError(t, err)

	_, err = svc.SubmitCart(ctx, 1)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSubmitCartRequestsQuote(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})
	ctx := context.Background()

	_, err := svc.AddCartItem(ctx, 1, 10, 1, "nogal", "")
	require.NoError(t, err)

	q, err := svc.SubmitCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, q.Status)

	// The cart slot is free again.
	cart, err := svc.GetOrCreateCart(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, q.ID, cart.ID)
}

func TestSetQuotePricesCustomItems(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})
	ctx := context.Background()

	_, err := svc.AddCustomCartItem(ctx, 1, CustomItemInput{
		Name: "Comedor", Description: "Seis puestos", Color: "nogal", Quantity: 2,
	})
	require.NoError(t, err)
	q, err := svc.SubmitCart(ctx, 1)
	require.NoError(t, err)

	price := 450000.0
	quoted, err := svc.SetQuote(ctx, q.ID, []QuoteItemInput{
		{ItemID: q.Items[0].ID, Price: &price},
	}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusQuoted, quoted.Status)
	assert.Equal(t, ItemQuoted, quoted.Items[0].ItemStatus)
	assert.Equal(t, 900000.0, quoted.TotalEstimate)
}

func TestDecideRejectsBadValue(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})
	_, err := svc.Decide(context.Background(), 1, 1, "maybe")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDecideForbiddenForNonOwner(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubPlacer{}, &recordingSender{})
	ctx := context.Background()

	_, err := svc.AddCartItem(ctx, 1, 10, 1, "nogal", "")
	require.NoError(t, err)
	q, err := svc.SubmitCart(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Decide(ctx, q.ID, 2, "accepted")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func quotedFixture(t *testing.T, svc *Service) Quotation {
	t.Helper()
	ctx := context.Background()
	_, err := svc.AddCustomCartItem(ctx, 1, CustomItemInput{
		Name: "Escritorio", Description: "En L", Color: "nogal",
	})
	require.NoError(t, err)
	q, err := svc.SubmitCart(ctx, 1)
	require.NoError(t, err)
	price := 800000.0
	notes := "Incluye instalación"
	q, err = svc.SetQuote(ctx, q.ID, []QuoteItemInput{
		{ItemID: q.Items[0].ID, Price: &price, AdminNotes: &notes},
	}, nil, nil)
	require.NoError(t, err)
	return q
}

func TestDecideAcceptedCreatesOrderAndDeletes(t *testing.T) {
	repo := newMemRepo()
	placer := &stubPlacer{}
	sender := &recordingSender{}
	svc := newTestService(repo, placer, sender)
	q := quotedFixture(t, svc)

	result, err := svc.Decide(context.Background(), q.ID, 1, "accepted")
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	require.NotNil(t, result.OrderID)

	require.Len(t, placer.created, 1)
	in := placer.created[0]
	require.Len(t, in.Items, 1)
	assert.Equal(t, 800000.0, in.Items[0].Value)
	assert.Equal(t, "Incluye instalación", in.Items[0].Detail)
	require.NotNil(t, in.Items[0].ServiceID)
	assert.Equal(t, int64(7), *in.Items[0].ServiceID)

	_, err = svc.Get(context.Background(), q.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, []string{"admin@maderia.local"}, sender.sent)
}

func TestDecideAcceptedSkipsDuplicateOrder(t *testing.T) {
	placer := &stubPlacer{recent: true}
	svc := newTestService(newMemRepo(), placer, &recordingSender{})
	q := quotedFixture(t, svc)

	result, err := svc.Decide(context.Background(), q.ID, 1, "accepted")
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Nil(t, result.OrderID)
	assert.Empty(t, placer.created)
}

func TestDecideRejectedDeletesWithoutOrder(t *testing.T) {
	repo := newMemRepo()
	placer := &stubPlacer{}
	svc := newTestService(repo, placer, &recordingSender{})
	q := quotedFixture(t, svc)

	msg, err := svc.PostMessage(context.Background(), q.ID, 1, "¿Pueden bajar el precio?")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)

	result, err := svc.Decide(context.Background(), q.ID, 1, "rejected")
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Nil(t, result.OrderID)
	assert.Empty(t, placer.created)

	// The chat thread is gone with the quotation.
	msgs, err := svc.Messages(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestQuickCreateRequiresItems(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})
	_, err := svc.QuickCreate(context.Background(), 1, nil, "")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestQuickCreateStartsRequested(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubPlacer{}, &recordingSender{})
	productID := int64(3)

	q, err := svc.QuickCreate(context.Background(), 1, []Item{
		{ProductID: &productID, Color: "roble"},
	}, "urgente")
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, q.Status)
	assert.Equal(t, 1, q.Items[0].Quantity)
	assert.Equal(t, ItemNormal, q.Items[0].ItemStatus)
}
