package batches

import (
	"github.com/shopspring/decimal"

	"github.com/batchflow/batchflow/internal/shared"
)

// DateLayout is the wire format of batch dates.
const DateLayout = "2006-01-02"

// CreateRequest is the body of POST /batches. An empty batch number is generated.
type CreateRequest struct {
	ProductID   int64            `json:"product_id" validate:"required,gt=0"`
	BatchNumber *string          `json:"batch_number,omitempty" validate:"omitempty,max=64"`
	MfgDate     string           `json:"mfg_date" validate:"required,datetime=2006-01-02"`
	ExpDate     string           `json:"exp_date" validate:"required,datetime=2006-01-02"`
	InitQty     int64            `json:"init_qty" validate:"gte=0"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// UpdateRequest is the body of PUT /batches/{id}.
type UpdateRequest struct {
	MfgDate     *string          `json:"mfg_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ExpDate     *string          `json:"exp_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	InitQty     *int64           `json:"init_qty,omitempty" validate:"omitempty,gte=0"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// ListFilter narrows GET /batches.
type ListFilter struct {
	ProductID *int64
	Page      shared.PageRequest
}

// ListResponse is a page of batches.
type ListResponse struct {
	Batches    []Batch           `json:"batches"`
	Pagination shared.Pagination `json:"pagination"`
}
