package visits

import "time"

// ExclusionWindow is the reserved block around every booked visit.
// Booking at T blocks every other start time within (T-3h, T+3h).
const ExclusionWindow = 3 * time.Hour

// SlotLabels are the bookable hourly start times within a business day.
var SlotLabels = []string{
	"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "14:00",
	"15:00", "16:00", "17:00", "18:00", "19:00", "20:00",
}

// Booking is the minimal view of an existing visit the allocator needs.
type Booking struct {
	ID    int64
	Start time.Time
}

// blocks reports whether an existing start time blocks the candidate.
func blocks(existing, candidate time.Time) bool {
	diff := existing.Sub(candidate)
	if diff < 0 {
		diff = -diff
	}
	return diff < ExclusionWindow
}

// FindConflict returns the first existing booking whose start lies
// strictly inside the candidate's exclusion window.
func FindConflict(existing []Booking, candidate time.Time) (Booking, bool) {
	for _, b := range existing {
		if blocks(b.Start, candidate) {
			return b, true
		}
	}
	return Booking{}, false
}

// AvailableSlots filters the day's slot labels down to those at least
// the exclusion window away from every existing booking. The date
// anchors the labels to concrete instants.
func AvailableSlots(date time.Time, existing []Booking) []string {
	year, month, day := date.Date()
	available := make([]string, 0, len(SlotLabels))
	for _, label := range SlotLabels {
		t, err := time.Parse("15:04", label)
		if err != nil {
			continue
		}
		slot := time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, date.Location())
		if _, taken := FindConflict(existing, slot); !taken {
			available = append(available, label)
		}
	}
	return available
}
