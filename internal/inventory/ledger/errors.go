package ledger

import (
	"fmt"

	"github.com/batchflow/batchflow/internal/shared"
)

var (
	ErrBatchNotFound      = shared.NewError(shared.ErrNotFound, "batch not found")
	ErrAssignmentNotFound = shared.NewError(shared.ErrNotFound, "batch assignment not found")

	ErrInvalidQuantity     = shared.NewError(shared.ErrValidation, "assigned quantity must be greater than zero")
	ErrDescriptionRequired = shared.NewError(shared.ErrValidation, "description is required when the assigned quantity differs from the ordered quantity")
	ErrProductMismatch     = shared.NewError(shared.ErrValidation, "batch and order are for different products")

	ErrInsufficientQuantity = shared.NewError(shared.ErrRuleViolation, "insufficient batch quantity")
	ErrDuplicateAssignment  = shared.NewError(shared.ErrRuleViolation, "batch is already assigned to this order")
	ErrOrderNotAssignable   = shared.NewError(shared.ErrRuleViolation, "order status does not accept batch assignment changes")
)

// InsufficientQuantityError reports the numbers behind a rejected assignment.
type InsufficientQuantityError struct {
	Available int64
	Assigned  int64
	Total     int64
	Requested int64
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient batch quantity: requested %d, available %d of %d", e.Requested, e.Available, e.Total)
}

func (e *InsufficientQuantityError) Unwrap() error {
	return ErrInsufficientQuantity
}

// Details is rendered into the error response.
func (e *InsufficientQuantityError) Details() any {
	return map[string]int64{
		"available": e.Available,
		"assigned":  e.Assigned,
		"total":     e.Total,
		"requested": e.Requested,
	}
}
