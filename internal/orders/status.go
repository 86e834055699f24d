package orders

import (
	"math"
	"time"
)

// depositThreshold is the fraction of the total that starts production.
const depositThreshold = 0.30

// DeriveStatus maps payment progress to an order status. Thresholds are
// evaluated top down: fully paid, production deposit, partial deposit,
// nothing paid. A zero-total order completes only once a positive amount
// has been paid; with nothing paid it stays pending.
func DeriveStatus(total, paid float64) string {
	switch {
	case total > 0 && paid >= total:
		return StatusCompleted
	case total == 0 && paid > 0:
		return StatusCompleted
	case total > 0 && paid >= depositThreshold*total:
		return StatusInProgress
	case paid > 0:
		return StatusPartialDeposit
	default:
		return StatusPending
	}
}

// productionStarted reports whether the given status means manufacturing
// has begun.
func productionStarted(status string) bool {
	return status == StatusInProgress || status == StatusCompleted
}

// applyStatus recomputes the order's derived fields after a payment
// mutation. Cancelled orders keep their status. The production start
// timestamp is stamped the first time the deposit threshold is crossed
// and never changed afterwards.
func applyStatus(o *Order, totals Totals, now time.Time) {
	o.Total = totals.Total
	o.Paid = totals.Paid
	if o.Status == StatusCancelled {
		return
	}
	o.Status = DeriveStatus(totals.Total, totals.Paid)
	if productionStarted(o.Status) && o.ProductionStartedAt == nil {
		started := now
		o.ProductionStartedAt = &started
	}
}

// ProductionDaysLeft returns how many days remain of the production
// window, clamped at zero. It returns ok=false when production has not
// started.
func ProductionDaysLeft(o Order, now time.Time) (int, bool) {
	if o.ProductionStartedAt == nil {
		return 0, false
	}
	deadline := o.ProductionStartedAt.AddDate(0, 0, ProductionWindowDays)
	if !now.Before(deadline) {
		return 0, true
	}
	days := int(math.Ceil(deadline.Sub(now).Hours() / 24))
	return days, true
}
