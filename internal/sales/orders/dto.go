package orders

import (
	"github.com/shopspring/decimal"

	"github.com/batchflow/batchflow/internal/shared"
)

// DateLayout is the wire format of order dates.
const DateLayout = "2006-01-02"

// CreateRequest represents a request to create an order.
type CreateRequest struct {
	ClientID     int64            `json:"client_id" validate:"required,gt=0"`
	ProductID    int64            `json:"product_id" validate:"required,gt=0"`
	Qty          int64            `json:"qty" validate:"required,gt=0"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	OrderDate    *string          `json:"order_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RequiredDate string           `json:"required_date" validate:"required,datetime=2006-01-02"`
	Notes        *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// UpdateRequest is the generic order update. Status may be set directly to any
// of the four known values.
type UpdateRequest struct {
	Qty          *int64           `json:"qty,omitempty" validate:"omitempty,gt=0"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	RequiredDate *string          `json:"required_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status       *string          `json:"status,omitempty"`
	Notes        *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status    *Status
	ClientID  *int64
	ProductID *int64
	Page      shared.PageRequest
}

// ListResponse represents API response for list.
type ListResponse struct {
	Orders     []WithDetails     `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}
