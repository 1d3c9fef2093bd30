package distribution

import "github.com/batchflow/batchflow/internal/shared"

var (
	ErrNotFound         = shared.NewError(shared.ErrNotFound, "distribution not found")
	ErrEmployeeNotFound = shared.NewError(shared.ErrNotFound, "employee not found")

	ErrNoEmployees  = shared.NewError(shared.ErrValidation, "at least one employee is required")
	ErrNoOrders     = shared.NewError(shared.ErrValidation, "at least one order is required")
	ErrInvalidState = shared.NewError(shared.ErrValidation, "invalid distribution state")

	ErrEmployeeUnavailable = shared.NewError(shared.ErrConflict, "employee is on a distribution in progress")
	ErrOrderUnavailable    = shared.NewError(shared.ErrConflict, "order is not available for distribution")

	// ErrIllegalStateTransition is the parent of the specific transition errors.
	ErrIllegalStateTransition = shared.NewError(shared.ErrRuleViolation, "illegal distribution state transition")
	ErrAlreadyStarted         = shared.NewError(ErrIllegalStateTransition, "distribution already started")
	ErrAlreadyCompleted       = shared.NewError(ErrIllegalStateTransition, "distribution already completed")
	ErrNotStarted             = shared.NewError(ErrIllegalStateTransition, "distribution not started")
)
