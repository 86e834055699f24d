package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name  string
		total float64
		paid  float64
		want  string
	}{
		{"nothing paid", 1000, 0, StatusPending},
		{"below deposit threshold", 1000, 299, StatusPartialDeposit},
		{"exactly at deposit threshold", 1000, 300, StatusInProgress},
		{"above threshold below total", 1000, 999, StatusInProgress},
		{"fully paid", 1000, 1000, StatusCompleted},
		{"overpaid", 1000, 1500, StatusCompleted},
		{"zero total nothing paid", 0, 0, StatusPending},
		{"zero total something paid", 0, 50, StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.total, tc.paid))
		})
	}
}

// Increasing paid for a fixed total never moves the status backward.
func TestDeriveStatusMonotonic(t *testing.T) {
	rank := map[string]int{
		StatusPending:        0,
		StatusPartialDeposit: 1,
		StatusInProgress:     2,
		StatusCompleted:      3,
	}
	const total = 750.0
	prev := -1
	for paid := 0.0; paid <= total+100; paid += 25 {
		status := DeriveStatus(total, paid)
		cur, ok := rank[status]
		require.True(t, ok, "unexpected status %q", status)
		require.GreaterOrEqual(t, cur, prev, "status regressed at paid=%v", paid)
		prev = cur
	}
}

func TestApplyStatusStampsProductionOnce(t *testing.T) {
	o := Order{Status: StatusPending}
	first := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	applyStatus(&o, Totals{Total: 1000, Paid: 400}, first)
	require.NotNil(t, o.ProductionStartedAt)
	assert.Equal(t, first, *o.ProductionStartedAt)
	assert.Equal(t, StatusInProgress, o.Status)

	later := first.Add(48 * time.Hour)
	applyStatus(&o, Totals{Total: 1000, Paid: 1000}, later)
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, first, *o.ProductionStartedAt, "timestamp must not move once set")
}

func TestApplyStatusKeepsCancelled(t *testing.T) {
	o := Order{Status: StatusCancelled}
	applyStatus(&o, Totals{Total: 1000, Paid: 1000}, time.Now())
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestProductionDaysLeft(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o := Order{ProductionStartedAt: &started}

	days, ok := ProductionDaysLeft(o, started)
	require.True(t, ok)
	assert.Equal(t, ProductionWindowDays, days)

	days, ok = ProductionDaysLeft(o, started.AddDate(0, 0, 10))
	require.True(t, ok)
	assert.Equal(t, 5, days)

	days, ok = ProductionDaysLeft(o, started.AddDate(0, 0, 20))
	require.True(t, ok)
	assert.Zero(t, days)

	_, ok = ProductionDaysLeft(Order{}, started)
	assert.False(t, ok, "no countdown before production starts")
}
