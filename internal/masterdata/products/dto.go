package products

import (
	"github.com/shopspring/decimal"

	"github.com/batchflow/batchflow/internal/shared"
)

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	CategoryID  *int64          `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description *string         `json:"description,omitempty"`
}

// UpdateProductRequest carries a partial update; nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	CategoryID  *int64           `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Description *string          `json:"description,omitempty"`
}

type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
}

type ListFilter struct {
	CategoryID *int64
	Search     *string
	Page       shared.PageRequest
}

type ListResponse struct {
	Products   []Product         `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}
