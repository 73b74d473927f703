package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the delivery lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusPickup    Status = "pickup"
)

// Order is a cash-on-delivery record created from a new-order message.
type Order struct {
	ID              uuid.UUID `json:"id"`
	GroupID         string    `json:"group_id"`
	AgencyID        string    `json:"agency_id"`
	Phone           string    `json:"phone"`
	CustomerName    string    `json:"customer_name,omitempty"`
	Items           string    `json:"items"`
	Quartier        string    `json:"quartier,omitempty"`
	Carrier         string    `json:"carrier,omitempty"`
	AmountDue       float64   `json:"amount_due"`
	AmountPaid      float64   `json:"amount_paid"`
	Status          Status    `json:"status"`
	SourceMessageID string    `json:"source_message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateOrderRequest carries the fields for a new order row.
type CreateOrderRequest struct {
	GroupID         string  `json:"group_id"`
	AgencyID        string  `json:"agency_id"`
	Phone           string  `json:"phone"`
	CustomerName    string  `json:"customer_name"`
	Items           string  `json:"items"`
	Quartier        string  `json:"quartier"`
	Carrier         string  `json:"carrier"`
	AmountDue       float64 `json:"amount_due"`
	SourceMessageID string  `json:"source_message_id"`
}

// Validate checks the request invariants before hitting the database.
func (r *CreateOrderRequest) Validate() error {
	if strings.TrimSpace(r.GroupID) == "" {
		return ErrMissingGroupID
	}
	if strings.TrimSpace(r.Items) == "" {
		return ErrMissingItems
	}
	if r.Phone == "" && r.AmountDue == 0 {
		return ErrMissingContact
	}
	if r.AmountDue < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Update is a partial mutation of an order row. Nil fields are left
// untouched. The caller is expected to apply an Update as a single-row
// atomic UPDATE so concurrent status messages for one phone never race to
// stale data.
type Update struct {
	Status     *Status
	AmountPaid *float64
	AmountDue  *float64
	Items      *string
	Phone      *string
}

// IsZero reports whether the update would touch nothing.
func (u Update) IsZero() bool {
	return u.Status == nil && u.AmountPaid == nil && u.AmountDue == nil && u.Items == nil && u.Phone == nil
}

// HistoryEntry is one audit line in an order's event trail.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
