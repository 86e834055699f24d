package orders

import "time"

// Order statuses. Derived statuses follow payment progress; Cancelado is
// admin-set and never derived.
const (
	StatusPending        = "Pendiente"
	StatusPartialDeposit = "Pendiente (abono parcial)"
	StatusInProgress     = "En proceso"
	StatusCompleted      = "Completado"
	StatusCancelled      = "Cancelado"
)

// Payment statuses. Only aprobado and confirmado count toward paid totals.
const (
	PaymentPending   = "pendiente"
	PaymentApproved  = "aprobado"
	PaymentConfirmed = "confirmado"
	PaymentRejected  = "rechazado"
)

// ProductionWindowDays is the promised manufacturing window that starts
// counting once production begins.
const ProductionWindowDays = 15

// Order is the order aggregate. Total and Paid are cached derivations
// kept consistent on every payment mutation; Version guards those
// read-modify-write cycles.
type Order struct {
	ID                  int64      `json:"id"`
	UserID              *int64     `json:"userId,omitempty"`
	CustomerName        string     `json:"customerName"`
	CustomerEmail       string     `json:"customerEmail"`
	CustomerPhone       string     `json:"customerPhone,omitempty"`
	Status              string     `json:"status"`
	Total               float64    `json:"total"`
	Paid                float64    `json:"paid"`
	StartedAt           time.Time  `json:"startedAt"`
	ProductionStartedAt *time.Time `json:"productionStartedAt,omitempty"`
	Version             int64      `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`

	Items    []LineItem `json:"items,omitempty"`
	Payments []Payment  `json:"payments,omitempty"`
}

// LineItem is a charged line on an order. ProductID and ServiceID are
// optional catalog references.
type LineItem struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"orderId"`
	ProductID *int64 `json:"productId,omitempty"`
	ServiceID *int64 `json:"serviceId,omitempty"`
	Name      string `json:"name"`
	Detail    string `json:"detail,omitempty"`
	Quantity  int    `json:"quantity"`
	// Value is the full line value, not a unit price.
	Value float64 `json:"value"`
}

// Payment is a recorded payment attempt against an order.
type Payment struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"orderId"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method,omitempty"`
	Status     string    `json:"status"`
	PaidAt     time.Time `json:"paidAt"`
	ReceiptURL string    `json:"receiptUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Review is a customer rating on a completed order. One per user per order.
type Review struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"orderId"`
	UserID    int64     `json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Attachment is uploaded file metadata linked to an order.
type Attachment struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"orderId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	URL         string    `json:"url"`
	UploadedBy  int64     `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Totals is the derived money view of an order.
type Totals struct {
	Total     float64 `json:"total"`
	Paid      float64 `json:"paid"`
	Remaining float64 `json:"remaining"`
}
