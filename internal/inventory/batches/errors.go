package batches

import "github.com/batchflow/batchflow/internal/shared"

var (
	ErrNotFound        = shared.NewError(shared.ErrNotFound, "batch not found")
	ErrProductNotFound = shared.NewError(shared.ErrValidation, "product does not exist")
	ErrInvalidDates    = shared.NewError(shared.ErrValidation, "expiry date must be after manufacture date")
	ErrInvalidQuantity = shared.NewError(shared.ErrValidation, "initial quantity cannot be negative")
	ErrInvalidUnitCost = shared.NewError(shared.ErrValidation, "unit cost cannot be negative")
	ErrInitQtyLocked   = shared.NewError(shared.ErrRuleViolation, "initial quantity cannot change once orders are assigned")
	ErrDuplicateNumber = shared.NewError(shared.ErrConflict, "batch number already exists")
	ErrHasAssignments  = shared.NewError(shared.ErrConflict, "batch is assigned to orders")
)
