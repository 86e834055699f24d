package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/maderia/maderia/internal/orders"
	"github.com/maderia/maderia/internal/platform/cache"
	"github.com/maderia/maderia/internal/platform/httpx"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 50
	trailingMonths  = 12
)

// Summary aggregates the qualifying orders of a range.
type Summary struct {
	TotalRevenue float64 `json:"totalRevenue"`
	TotalSales   int     `json:"totalSales"`
	TotalUsers   int64   `json:"totalUsers"`
}

// Bucket is one revenue/sales series entry.
type Bucket struct {
	Key     string  `json:"key"`
	Revenue float64 `json:"revenue"`
	Sales   int     `json:"sales"`
}

// Series carries the monthly buckets plus their coarser foldings.
type Series struct {
	Monthly    []Bucket `json:"monthly"`
	Quarterly  []Bucket `json:"quarterly"`
	Semiannual []Bucket `json:"semiannual"`
}

// TopItem ranks one catalog entry by summed quantity.
type TopItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// TopItems splits the ranking by catalog kind.
type TopItems struct {
	Products []TopItem `json:"products"`
	Services []TopItem `json:"services"`
}

// Report is one computed range.
type Report struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Summary  Summary  `json:"summary"`
	Series   Series   `json:"series"`
	TopItems TopItems `json:"topItems"`
}

// Response is the endpoint payload. Explicit-range requests fill Report;
// period requests fill Previous and, unless comparison is disabled,
// Current.
type Response struct {
	Report   *Report `json:"report,omitempty"`
	Previous *Report `json:"previous,omitempty"`
	Current  *Report `json:"current,omitempty"`
}

// OrderSource loads orders whose production started inside a window.
type OrderSource interface {
	ListStartedBetween(ctx context.Context, from, to time.Time) ([]orders.Order, error)
}

// UserCounter counts account sign-ups inside a window.
type UserCounter interface {
	CountRegisteredBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// NameSource resolves catalog display names for ranked items.
type NameSource interface {
	ProductNames(ctx context.Context, ids []int64) (map[int64]string, error)
	OfferingNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Service computes revenue reports. Results are cached in Redis and
// computed under singleflight so concurrent identical requests share
// one database pass.
type Service struct {
	orders OrderSource
	users  UserCounter
	names  NameSource
	cache  *cache.Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

func NewService(orderSrc OrderSource, users UserCounter, names NameSource, c *cache.Cache, logger *slog.Logger) *Service {
	return &Service{
		orders: orderSrc,
		users:  users,
		names:  names,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// Query is the parsed request.
type Query struct {
	From    string
	To      string
	Period  string
	Compare bool
	Limit   int
}

// Handle resolves the request mode and computes the report(s). An
// explicit range wins over period mode when both are present.
func (s *Service) Handle(ctx context.Context, q Query) (Response, error) {
	limit := q.Limit
	if limit < 1 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	if q.From != "" || q.To != "" || q.Period == "" {
		from, to, err := s.resolveRange(q.From, q.To)
		if err != nil {
			return Response{}, err
		}
		report, err := s.cachedRange(ctx, from, to, limit)
		if err != nil {
			return Response{}, err
		}
		return Response{Report: &report}, nil
	}

	prevFrom, prevTo, curFrom, curTo, ok := periodWindows(q.Period, s.now())
	if !ok {
		return Response{}, fmt.Errorf("%w: unknown period %q", httpx.ErrValidation, q.Period)
	}
	previous, err := s.cachedRange(ctx, prevFrom, prevTo, limit)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Previous: &previous}
	if q.Compare {
		current, err := s.cachedRange(ctx, curFrom, curTo, limit)
		if err != nil {
			return Response{}, err
		}
		resp.Current = &current
	}
	return resp, nil
}

// Refresh invalidates every cached report and recomputes the default
// range. The nightly warm job runs it so figures cached yesterday do
// not survive into today.
func (s *Service) Refresh(ctx context.Context) (Response, error) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("dashboard cache bump", "error", err)
	}
	return s.Handle(ctx, Query{})
}

// resolveRange parses the explicit bounds. Unparseable dates fall back
// to the trailing twelve months; an inverted range is rejected.
func (s *Service) resolveRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := s.now()
	from := dayStart(now.AddDate(0, -trailingMonths, 0))
	to := dayStart(now)

	if fromStr != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", fromStr, now.Location()); err == nil {
			from = parsed
		}
	}
	if toStr != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", toStr, now.Location()); err == nil {
			to = parsed
		}
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from is after to", httpx.ErrValidation)
	}
	return from, to, nil
}

func (s *Service) cachedRange(ctx context.Context, from, to time.Time, limit int) (Report, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", from.Format("2006-01-02"), to.Format("2006-01-02"), fmt.Sprint(limit))
	if err != nil {
		s.logger.Warn("dashboard cache key", "error", err)
		return s.ComputeRange(ctx, from, to, limit)
	}
	result, err, _ := s.group.Do(key, func() (any, error) {
		var report Report
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
			return s.ComputeRange(ctx, from, to, limit)
		})
		return report, err
	})
	if err != nil {
		return Report{}, err
	}
	return result.(Report), nil
}

// ComputeRange aggregates qualifying orders, those whose startedAt falls
// inside the inclusive day range. Revenue sums approved payments; sales
// count orders settled within the observed payment set.
func (s *Service) ComputeRange(ctx context.Context, from, to time.Time, limit int) (Report, error) {
	fromDay := dayStart(from)
	toExclusive := dayStart(to).AddDate(0, 0, 1)

	list, err := s.orders.ListStartedBetween(ctx, fromDay, toExclusive)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		From: fromDay.Format("2006-01-02"),
		To:   dayStart(to).Format("2006-01-02"),
	}

	monthly := make([]Bucket, 0, trailingMonths)
	monthIndex := map[string]int{}
	for _, key := range monthKeys(fromDay, to) {
		monthIndex[key] = len(monthly)
		monthly = append(monthly, Bucket{Key: key})
	}

	productQty := map[int64]int{}
	productOrder := []int64{}
	serviceQty := map[int64]int{}
	serviceOrder := []int64{}

	for _, o := range list {
		totals := orders.ComputeTotals(o.Items, o.Payments)
		settled := totals.Paid >= totals.Total

		report.Summary.TotalRevenue += totals.Paid
		if settled {
			report.Summary.TotalSales++
		}
		if i, ok := monthIndex[monthKey(o.StartedAt)]; ok {
			monthly[i].Revenue += totals.Paid
			if settled {
				monthly[i].Sales++
			}
		}

		for _, it := range o.Items {
			switch {
			case it.ProductID != nil:
				if _, seen := productQty[*it.ProductID]; !seen {
					productOrder = append(productOrder, *it.ProductID)
				}
				productQty[*it.ProductID] += it.Quantity
			case it.ServiceID != nil:
				if _, seen := serviceQty[*it.ServiceID]; !seen {
					serviceOrder = append(serviceOrder, *it.ServiceID)
				}
				serviceQty[*it.ServiceID] += it.Quantity
			}
		}
	}

	report.Series = Series{
		Monthly:    monthly,
		Quarterly:  rebucket(monthly, quarterKey),
		Semiannual: rebucket(monthly, semesterKey),
	}

	report.TopItems.Products, err = s.rank(ctx, productQty, productOrder, limit, s.names.ProductNames)
	if err != nil {
		return Report{}, err
	}
	report.TopItems.Services, err = s.rank(ctx, serviceQty, serviceOrder, limit, s.names.OfferingNames)
	if err != nil {
		return Report{}, err
	}

	if s.users != nil {
		count, err := s.users.CountRegisteredBetween(ctx, fromDay, toExclusive)
		if err != nil {
			return Report{}, err
		}
		report.Summary.TotalUsers = count
	}
	return report, nil
}

// rank orders ids by summed quantity, ties kept in first-seen order,
// and joins catalog names.
func (s *Service) rank(ctx context.Context, qty map[int64]int, seen []int64, limit int,
	lookup func(context.Context, []int64) (map[int64]string, error)) ([]TopItem, error) {
	ids := append([]int64(nil), seen...)
	sort.SliceStable(ids, func(a, b int) bool { return qty[ids[a]] > qty[ids[b]] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	names, err := lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]TopItem, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			name = "Desconocido"
		}
		items = append(items, TopItem{ID: id, Name: name, Quantity: qty[id]})
	}
	return items, nil
}
