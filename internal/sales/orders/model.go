// Package orders holds client orders, their pricing and their status engine.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle of an order.
type Status string

const (
	StatusPending   Status = "pending"    // Created, nothing assigned yet
	StatusAssigned  Status = "assigned"   // Batch stock committed
	StatusInTransit Status = "in_transit" // On a started distribution run
	StatusDelivered Status = "delivered"  // Run completed
)

// IsValid checks if the status is one of the four known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInTransit, StatusDelivered:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the engine may move an order from s to next.
// Staying in the same status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return next.IsValid()
	}
	switch s {
	case StatusPending:
		return next == StatusAssigned
	case StatusAssigned:
		return next == StatusInTransit || next == StatusPending
	case StatusInTransit:
		return next == StatusDelivered || next == StatusAssigned
	default:
		return false
	}
}

// AcceptsAssignments reports whether batch stock may be added, changed or released.
func (s Status) AcceptsAssignments() bool {
	return s == StatusPending || s == StatusAssigned
}

// Order is a client's request for a quantity of one product.
type Order struct {
	ID           int64           `json:"id"`
	ClientID     int64           `json:"client_id"`
	ProductID    int64           `json:"product_id"`
	Qty          int64           `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	OrderDate    time.Time       `json:"order_date"`
	RequiredDate time.Time       `json:"required_date"`
	Status       Status          `json:"status"`
	Notes        *string         `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// WithDetails includes joined data for display.
type WithDetails struct {
	Order
	ClientName  string `json:"client_name"`
	ProductName string `json:"product_name"`
	AssignedQty int64  `json:"assigned_qty"`
}

// RequirementRow is one unfulfilled order as read for production planning.
type RequirementRow struct {
	OrderID      int64
	ProductID    int64
	ProductName  string
	ClientName   string
	Qty          int64
	AssignedQty  int64
	RequiredDate time.Time
	Status       Status
}

// Outstanding is the quantity still to be produced for the order.
func (r RequirementRow) Outstanding() int64 {
	if r.AssignedQty >= r.Qty {
		return 0
	}
	return r.Qty - r.AssignedQty
}
