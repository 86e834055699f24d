package quotations

import "time"

// Quotation statuses. Carrito is the active cart; En proceso and
// Cerrada are reached only through the decision flow, which deletes the
// record after deriving its result.
const (
	StatusCart      = "Carrito"
	StatusRequested = "Solicitada"
	StatusInProcess = "En proceso"
	StatusQuoted    = "Cotizada"
	StatusClosed    = "Cerrada"
)

// Item statuses. Custom items enter as pending_quote and move to quoted
// once the admin prices them.
const (
	ItemNormal       = "normal"
	ItemPendingQuote = "pending_quote"
	ItemQuoted       = "quoted"
	ItemConfirmed    = "confirmed"
)

// Quotation is a cart or a quotation request, depending on status.
type Quotation struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Status        string    `json:"status"`
	Items         []Item    `json:"items"`
	TotalEstimate float64   `json:"totalEstimate"`
	AdminNotes    string    `json:"adminNotes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Item is a quotation line. Either ProductID references the catalog or
// IsCustom is set and the Custom fields describe a made-to-order piece;
// never both.
type Item struct {
	ID          int64  `json:"id"`
	QuotationID int64  `json:"quotationId"`
	ProductID   *int64 `json:"productId,omitempty"`
	IsCustom    bool   `json:"isCustom"`

	CustomName        string `json:"customName,omitempty"`
	CustomDescription string `json:"customDescription,omitempty"`
	WoodType          string `json:"woodType,omitempty"`
	ReferenceImage    string `json:"referenceImage,omitempty"`

	Quantity   int     `json:"quantity"`
	Color      string  `json:"color"`
	Size       string  `json:"size,omitempty"`
	Price      float64 `json:"price"`
	AdminNotes string  `json:"adminNotes,omitempty"`
	ItemStatus string  `json:"itemStatus"`
}

// Message is one chat entry on a quotation thread. The whole thread is
// removed together with the quotation on decision.
type Message struct {
	ID          int64     `json:"id"`
	QuotationID int64     `json:"quotationId"`
	SenderID    int64     `json:"senderId"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

// estimate sums price times quantity across items.
func estimate(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
