package orders

import "strings"

// approvedPaymentStatus reports whether a payment counts toward paid
// totals. Matching is case-insensitive.
func approvedPaymentStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case PaymentApproved, PaymentConfirmed:
		return true
	}
	return false
}

// ComputeTotals derives the money view of an order from its line items
// and payments. Remaining may be negative when overpaid; callers clamp
// where the business view needs it.
func ComputeTotals(items []LineItem, payments []Payment) Totals {
	var t Totals
	for _, item := range items {
		t.Total += item.Value
	}
	for _, p := range payments {
		if approvedPaymentStatus(p.Status) {
			t.Paid += p.Amount
		}
	}
	t.Remaining = t.Total - t.Paid
	return t
}
