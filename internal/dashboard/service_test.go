package dashboard

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maderia/maderia/internal/orders"
	"github.com/maderia/maderia/internal/platform/cache"
	"github.com/maderia/maderia/internal/platform/httpx"
)

type stubOrders struct {
	list []orders.Order
}

func (s *stubOrders) ListStartedBetween(_ context.Context, from, to time.Time) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range s.list {
		if !o.StartedAt.Before(from) && o.StartedAt.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubUsers struct{ count int64 }

func (s stubUsers) CountRegisteredBetween(context.Context, time.Time, time.Time) (int64, error) {
	return s.count, nil
}

type stubNames struct{}

func (stubNames) ProductNames(_ context.Context, ids []int64) (map[int64]string, error) {
	out := map[int64]string{1: "Mesa nogal", 2: "Silla roble"}
	return out, nil
}

func (stubNames) OfferingNames(_ context.Context, ids []int64) (map[int64]string, error) {
	return map[int64]string{7: "Instalación"}, nil
}

func newTestService(src *stubOrders, users stubUsers) *Service {
	svc := NewService(src, users, stubNames{}, nil, slog.New(slog.DiscardHandler))
	svc.now = func() time.Time {
		return time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func startedOrder(id int64, started time.Time, total, paid float64) orders.Order {
	productID := int64(1)
	return orders.Order{
		ID:        id,
		StartedAt: started,
		Items: []orders.LineItem{
			{ProductID: &productID, Name: "Mesa nogal", Quantity: 1, Value: total},
		},
		Payments: []orders.Payment{
			{Amount: paid, Status: "aprobado"},
		},
	}
}

func TestComputeRangeSettledOrder(t *testing.T) {
	src := &stubOrders{list: []orders.Order{
		startedOrder(1, time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), 150, 150),
	}}
	svc := newTestService(src, stubUsers{count: 3})

	report, err := svc.ComputeRange(context.Background(),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.TotalSales)
	assert.Equal(t, 150.0, report.Summary.TotalRevenue)
	assert.Equal(t, int64(3), report.Summary.TotalUsers)

	require.Len(t, report.Series.Monthly, 12)
	assert.Equal(t, Bucket{Key: "2026-01", Revenue: 150, Sales: 1}, report.Series.Monthly[0])
	assert.Equal(t, Bucket{Key: "2026-02"}, report.Series.Monthly[1])

	require.Len(t, report.Series.Quarterly, 4)
	assert.Equal(t, 150.0, report.Series.Quarterly[0].Revenue)
	require.Len(t, report.Series.Semiannual, 2)
	assert.Equal(t, 150.0, report.Series.Semiannual[0].Revenue)

	require.Len(t, report.TopItems.Products, 1)
	assert.Equal(t, TopItem{ID: 1, Name: "Mesa nogal", Quantity: 1}, report.TopItems.Products[0])
}

func TestComputeRangePartialOrderCountsRevenueOnly(t *testing.T) {
	src := &stubOrders{list: []orders.Order{
		startedOrder(1, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), 300, 100),
	}}
	svc := newTestService(src, stubUsers{})

	report, err := svc.ComputeRange(context.Background(),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.TotalSales)
	assert.Equal(t, 100.0, report.Summary.TotalRevenue)
}

func TestComputeRangeIgnoresPendingPayments(t *testing.T) {
	o := startedOrder(1, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), 300, 300)
	o.Payments[0].Status = "pendiente"
	svc := newTestService(&stubOrders{list: []orders.Order{o}}, stubUsers{})

	report, err := svc.ComputeRange(context.Background(),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.Summary.TotalRevenue)
	assert.Equal(t, 0, report.Summary.TotalSales)
}

func TestComputeRangeTopItemsRankedAndClamped(t *testing.T) {
	p1, p2, s7 := int64(1), int64(2), int64(7)
	o := orders.Order{
		ID:        1,
		StartedAt: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		Items: []orders.LineItem{
			{ProductID: &p1, Quantity: 2, Value: 100},
			{ProductID: &p2, Quantity: 5, Value: 100},
			{ServiceID: &s7, Quantity: 1, Value: 50},
		},
	}
	svc := newTestService(&stubOrders{list: []orders.Order{o}}, stubUsers{})

	report, err := svc.ComputeRange(context.Background(),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)

	require.Len(t, report.TopItems.Products, 1)
	assert.Equal(t, int64(2), report.TopItems.Products[0].ID)
	require.Len(t, report.TopItems.Services, 1)
	assert.Equal(t, "Instalación", report.TopItems.Services[0].Name)
}

func TestHandleRejectsInvertedRange(t *testing.T) {
	svc := newTestService(&stubOrders{}, stubUsers{})
	_, err := svc.Handle(context.Background(), Query{From: "2026-06-01", To: "2026-01-01", Compare: true})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestHandleBadDatesFallBackToDefaults(t *testing.T) {
	svc := newTestService(&stubOrders{}, stubUsers{})
	resp, err := svc.Handle(context.Background(), Query{From: "not-a-date", To: "also-bad", Compare: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "2025-08-28", resp.Report.From)
	assert.Equal(t, "2026-08-28", resp.Report.To)
}

func TestHandlePeriodMode(t *testing.T) {
	// One order in July (previous complete month), one in August
	// (current month to date).
	src := &stubOrders{list: []orders.Order{
		startedOrder(1, time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC), 100, 100),
		startedOrder(2, time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC), 200, 200),
	}}
	svc := newTestService(src, stubUsers{})

	resp, err := svc.Handle(context.Background(), Query{Period: PeriodMonth, Compare: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Previous)
	require.NotNil(t, resp.Current)
	assert.Equal(t, 100.0, resp.Previous.Summary.TotalRevenue)
	assert.Equal(t, 200.0, resp.Current.Summary.TotalRevenue)

	resp, err = svc.Handle(context.Background(), Query{Period: PeriodMonth})
	require.NoError(t, err)
	require.NotNil(t, resp.Previous)
	assert.Nil(t, resp.Current)
}

func TestHandleExplicitRangeWinsOverPeriod(t *testing.T) {
	src := &stubOrders{list: []orders.Order{
		startedOrder(1, time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), 150, 150),
	}}
	svc := newTestService(src, stubUsers{})

	resp, err := svc.Handle(context.Background(), Query{
		From: "2026-01-01", To: "2026-12-31", Period: PeriodMonth, Compare: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Report)
	assert.Nil(t, resp.Previous)
	assert.Equal(t, 150.0, resp.Report.Summary.TotalRevenue)
}

func TestRefreshDropsStaleCache(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	reportCache := cache.New(client, "dashboard", time.Hour)

	src := &stubOrders{list: []orders.Order{
		startedOrder(1, time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC), 100, 100),
	}}
	svc := NewService(src, stubUsers{}, stubNames{}, reportCache, slog.New(slog.DiscardHandler))
	svc.now = func() time.Time {
		return time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)
	}
	ctx := context.Background()

	first, err := svc.Handle(ctx, Query{})
	require.NoError(t, err)
	require.NotNil(t, first.Report)
	assert.Equal(t, 100.0, first.Report.Summary.TotalRevenue)

	src.list = append(src.list,
		startedOrder(2, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), 200, 200))

	stale, err := svc.Handle(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, stale.Report.Summary.TotalRevenue, "default range stays cached")

	fresh, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.NotNil(t, fresh.Report)
	assert.Equal(t, 300.0, fresh.Report.Summary.TotalRevenue)
}
