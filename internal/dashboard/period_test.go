package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthKeysSpanInclusive(t *testing.T) {
	from := time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2025-11", "2025-12", "2026-01", "2026-02"}, monthKeys(from, to))
}

func TestRebucketPreservesSums(t *testing.T) {
	monthly := []Bucket{
		{Key: "2026-01", Revenue: 100, Sales: 1},
		{Key: "2026-02", Revenue: 50, Sales: 2},
		{Key: "2026-03", Revenue: 25, Sales: 0},
		{Key: "2026-04", Revenue: 10, Sales: 1},
		{Key: "2026-07", Revenue: 5, Sales: 1},
	}

	quarterly := rebucket(monthly, quarterKey)
	require.Len(t, quarterly, 3)
	assert.Equal(t, Bucket{Key: "2026-Q1", Revenue: 175, Sales: 3}, quarterly[0])
	assert.Equal(t, Bucket{Key: "2026-Q2", Revenue: 10, Sales: 1}, quarterly[1])
	assert.Equal(t, Bucket{Key: "2026-Q3", Revenue: 5, Sales: 1}, quarterly[2])

	semiannual := rebucket(monthly, semesterKey)
	require.Len(t, semiannual, 2)

	var mRev, qRev, sRev float64
	var mSales, qSales, sSales int
	for _, b := range monthly {
		mRev += b.Revenue
		mSales += b.Sales
	}
	for _, b := range quarterly {
		qRev += b.Revenue
		qSales += b.Sales
	}
	for _, b := range semiannual {
		sRev += b.Revenue
		sSales += b.Sales
	}
	assert.Equal(t, mRev, qRev)
	assert.Equal(t, mRev, sRev)
	assert.Equal(t, mSales, qSales)
	assert.Equal(t, mSales, sSales)
}

func TestPeriodWindowsMonth(t *testing.T) {
	now := time.Date(2026, time.March, 17, 14, 30, 0, 0, time.UTC)
	prevFrom, prevTo, curFrom, curTo, ok := periodWindows(PeriodMonth, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), prevFrom)
	assert.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), prevTo)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), curFrom)
	assert.Equal(t, time.Date(2026, time.March, 17, 0, 0, 0, 0, time.UTC), curTo)
}

func TestPeriodWindowsQuarterCrossesYear(t *testing.T) {
	now := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	prevFrom, prevTo, curFrom, _, ok := periodWindows(PeriodQuarter, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), prevFrom)
	assert.Equal(t, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), prevTo)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), curFrom)
}

func TestPeriodWindowsSemesterAndYear(t *testing.T) {
	now := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)

	prevFrom, prevTo, curFrom, _, ok := periodWindows(PeriodSemester, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), prevFrom)
	assert.Equal(t, time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), prevTo)
	assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), curFrom)

	prevFrom, prevTo, _, _, ok = periodWindows(PeriodYear, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), prevFrom)
	assert.Equal(t, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), prevTo)

	_, _, _, _, ok = periodWindows("decade", now)
	assert.False(t, ok)
}
