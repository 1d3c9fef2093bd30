package orders

import "github.com/batchflow/batchflow/internal/shared"

// Domain errors for orders.
var (
	ErrNotFound = shared.NewError(shared.ErrNotFound, "order not found")

	ErrInvalidStatus      = shared.NewError(shared.ErrValidation, "invalid order status")
	ErrInvalidQuantity    = shared.NewError(shared.ErrValidation, "order quantity must be greater than zero")
	ErrInvalidUnitPrice   = shared.NewError(shared.ErrValidation, "unit price cannot be negative")
	ErrClientNotFound     = shared.NewError(shared.ErrValidation, "client does not exist")
	ErrProductNotFound    = shared.NewError(shared.ErrValidation, "product does not exist")
	ErrIllegalTransition  = shared.NewError(shared.ErrRuleViolation, "illegal order status transition")
	ErrQtyLocked          = shared.NewError(shared.ErrRuleViolation, "ordered quantity cannot change once batches are assigned")
	ErrOrderInTransit     = shared.NewError(shared.ErrRuleViolation, "order is on a distribution run in progress")
	ErrStatusOnRun        = shared.NewError(shared.ErrRuleViolation, "order status is driven by its distribution run")
	ErrDeleteNotSupported = shared.NewError(shared.ErrRuleViolation, "order deletion is not configured")
)
