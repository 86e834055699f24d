package orders

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maderia/maderia/internal/shared"
)

type stubPerms struct {
	staff bool
	err   error
}

func (s stubPerms) Has(context.Context, int64, string, string) (bool, error) {
	return s.staff, s.err
}

func newTestHandler(repo Repository, perms PermissionChecker) *Handler {
	return NewHandler(slog.New(slog.DiscardHandler), newTestService(repo, stubExtractor{}), perms)
}

// getOrder drives the detail handler the way the router would, with the
// id as a route param and the caller's session on the context.
func getOrder(h *Handler, orderID, callerID int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/orders/"+strconv.FormatInt(orderID, 10), nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", strconv.FormatInt(orderID, 10))
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)

	sess := &shared.Session{}
	sess.SetUserID(callerID)
	ctx = shared.ContextWithSession(ctx, sess)

	w := httptest.NewRecorder()
	h.get(w, req.WithContext(ctx))
	return w
}

func ownedOrderFixture(t *testing.T, repo Repository, userID int64) Order {
	t.Helper()
	svc := newTestService(repo, stubExtractor{})
	o, err := svc.Create(context.Background(), CreateInput{
		UserID:        &userID,
		CustomerName:  "Nora Castillo",
		CustomerEmail: "nora@example.com",
		Items:         []LineItemInput{{Name: "Biblioteca cedro", Quantity: 1, Value: 2000000}},
	})
	require.NoError(t, err)
	return o
}

func TestGetOrderHiddenFromOtherCustomers(t *testing.T) {
	repo := newMemRepo()
	o := ownedOrderFixture(t, repo, 1)
	h := newTestHandler(repo, stubPerms{staff: false})

	w := getOrder(h, o.ID, 99)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "nora@example.com")
}

func TestGetOrderOwnerSeesOwn(t *testing.T) {
	repo := newMemRepo()
	o := ownedOrderFixture(t, repo, 1)
	h := newTestHandler(repo, stubPerms{staff: false})

	w := getOrder(h, o.ID, 1)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nora@example.com")
}

func TestGetOrderStaffSeeAny(t *testing.T) {
	repo := newMemRepo()
	o := ownedOrderFixture(t, repo, 1)
	h := newTestHandler(repo, stubPerms{staff: true})

	w := getOrder(h, o.ID, 50)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nora@example.com")
}

func TestGetOrderGuestOrderNotExposed(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, stubExtractor{})
	o, err := svc.Create(context.Background(), CreateInput{
		CustomerName:  "Cliente de mostrador",
		CustomerEmail: "mostrador@example.com",
		Items:         []LineItemInput{{Name: "Banco pino", Quantity: 1, Value: 150000}},
	})
	require.NoError(t, err)
	h := newTestHandler(repo, stubPerms{staff: false})

	w := getOrder(h, o.ID, 99)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
