package visits

import "time"

// Visit statuses. Cancellation is a status value, never a row removal.
const (
	StatusPending    = "pendiente"
	StatusConfirmed  = "confirmada"
	StatusInProgress = "en_progreso"
	StatusCompleted  = "completada"
	StatusCancelled  = "cancelada"
)

// Visit is a scheduled workshop visit. Either UserID or the guest
// fields are set, never both.
type Visit struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"userId,omitempty"`
	IsGuest     bool      `json:"isGuest"`
	GuestName   string    `json:"guestName,omitempty"`
	GuestEmail  string    `json:"guestEmail,omitempty"`
	GuestPhone  string    `json:"guestPhone,omitempty"`
	VisitDate   time.Time `json:"visitDate"`
	VisitTime   string    `json:"visitTime"`
	Address     string    `json:"address"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	ServiceIDs  []int64   `json:"serviceIds,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// cancelledStatus covers both grammatical forms that show up in
// historic data.
func cancelledStatus(status string) bool {
	return status == "cancelada" || status == "cancelado"
}
