package products

import "github.com/batchflow/batchflow/internal/shared"

var (
	ErrNotFound          = shared.NewError(shared.ErrNotFound, "product not found")
	ErrCategoryNotFound  = shared.NewError(shared.ErrValidation, "category not found")
	ErrNameEmpty         = shared.NewError(shared.ErrValidation, "name is required")
	ErrInvalidPrice      = shared.NewError(shared.ErrValidation, "unit price must not be negative")
	ErrDuplicateCategory = shared.NewError(shared.ErrConflict, "category already exists")
	ErrInUse             = shared.NewError(shared.ErrConflict, "product is referenced by batches or orders")
)
