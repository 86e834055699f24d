package visits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(hour int) time.Time {
	return time.Date(2026, 2, 10, hour, 0, 0, 0, time.UTC)
}

func TestFindConflict(t *testing.T) {
	existing := []Booking{{ID: 42, Start: date(10)}}

	cases := []struct {
		name      string
		candidate time.Time
		conflict  bool
	}{
		{"same hour", date(10), true},
		{"one hour after", date(11), true},
		{"two hours after", date(12), true},
		{"three hours after", date(13), false},
		{"two hours before", date(8), true},
		{"three hours before", date(7), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, got := FindConflict(existing, tc.candidate)
			assert.Equal(t, tc.conflict, got)
			if got {
				assert.Equal(t, int64(42), b.ID)
			}
		})
	}
}

func TestAvailableSlots(t *testing.T) {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	existing := []Booking{{ID: 1, Start: date(10)}}

	slots := AvailableSlots(day, existing)

	assert.NotContains(t, slots, "08:00")
	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "10:00")
	assert.NotContains(t, slots, "11:00")
	assert.NotContains(t, slots, "12:00")
	assert.Contains(t, slots, "13:00")
	assert.Contains(t, slots, "20:00")
}

func TestAvailableSlotsEmptyDay(t *testing.T) {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, SlotLabels, AvailableSlots(day, nil))
}

// After any sequence of accepted bookings, every pair of non-cancelled
// visits is at least the exclusion window apart.
func TestBookingSequenceKeepsSpacing(t *testing.T) {
	var accepted []Booking
	candidates := []time.Time{date(8), date(9), date(11), date(12), date(13), date(16), date(18)}

	for i, c := range candidates {
		if _, taken := FindConflict(accepted, c); !taken {
			accepted = append(accepted, Booking{ID: int64(i), Start: c})
		}
	}

	for i := range accepted {
		for j := i + 1; j < len(accepted); j++ {
			diff := accepted[i].Start.Sub(accepted[j].Start)
			if diff < 0 {
				diff = -diff
			}
			assert.GreaterOrEqual(t, diff, ExclusionWindow,
				"visits %d and %d too close", accepted[i].ID, accepted[j].ID)
		}
	}
}
